// Command dbusctl is a small inspection tool for a D-Bus session or
// system bus: list names, ping peers, walk introspection trees, and
// watch signals go by.
package main

import (
	"cmp"
	"context"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/creachadair/command"
	"github.com/creachadair/flax"
	"github.com/creachadair/mds/heapq"
	"github.com/kr/pretty"

	"github.com/halvard/dbus"
)

var globalArgs struct {
	UseSessionBus bool `flag:"session,Connect to the session bus instead of the system bus"`
}

func busConn(ctx context.Context) (*dbus.Client, error) {
	if globalArgs.UseSessionBus {
		return dbus.SessionBus(ctx)
	}
	return dbus.SystemBus(ctx)
}

func main() {
	root := &command.C{
		Name:     "dbusctl",
		Usage:    "command args...",
		SetFlags: command.Flags(flax.MustBind, &globalArgs),
		Commands: []*command.C{
			{
				Name:  "list",
				Usage: "list args...",
				Commands: []*command.C{
					{
						Name:  "names",
						Usage: "list names",
						Help:  "List every name currently registered on the bus.",
						Run:   command.Adapt(runListNames),
					},
					{
						Name:  "interfaces",
						Usage: "list interfaces peer [path]",
						Help:  "Walk a peer's object tree and print every interface it implements.",
						Run:   runListInterfaces,
					},
				},
			},
			{
				Name:  "ping",
				Usage: "ping peer",
				Help:  "Ping a peer.",
				Run:   command.Adapt(runPing),
			},
			{
				Name:  "whois",
				Usage: "whois peer",
				Help:  "Print the Unix uid and pid backing a bus name.",
				Run:   command.Adapt(runWhois),
			},
			{
				Name:  "listen",
				Usage: "listen",
				Help:  "Listen to every signal on the bus and print them as they arrive.",
				Run:   command.Adapt(runListen),
			},
			{
				Name:  "features",
				Usage: "features",
				Help:  "List the message bus daemon's advertised feature flags.",
				Run:   command.Adapt(runFeatures),
			},
			{
				Name:  "call",
				Usage: "call peer path interface member",
				Help:  "Call a method that takes no arguments and print its reply.",
				Run:   runCall,
			},
			command.HelpCommand(nil),
			command.VersionCommand(),
		},
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	env := root.NewEnv(nil).SetContext(ctx)
	command.RunOrFail(env, os.Args[1:])
}

func runListNames(env *command.Env) error {
	conn, err := busConn(env.Context())
	if err != nil {
		return fmt.Errorf("connecting to bus: %w", err)
	}
	defer conn.Disconnect()

	ctx, cancel := context.WithTimeout(env.Context(), time.Minute)
	defer cancel()
	names, err := conn.ListNames(ctx)
	if err != nil {
		return fmt.Errorf("listing bus names: %w", err)
	}
	slices.SortFunc(names, func(a, b dbus.BusName) int { return cmp.Compare(a, b) })
	for _, n := range names {
		fmt.Println(n)
	}
	return nil
}

// objTask is one node still to visit in the introspection BFS.
type objTask struct {
	peer dbus.BusName
	path dbus.ObjectPath
}

func runListInterfaces(env *command.Env) error {
	if len(env.Args) == 0 {
		return env.Usagef("list interfaces requires a peer argument")
	}
	conn, err := busConn(env.Context())
	if err != nil {
		return fmt.Errorf("connecting to bus: %w", err)
	}
	defer conn.Disconnect()

	peer := dbus.BusName(env.Args[0])
	root := dbus.ObjectPath("/")
	if len(env.Args) > 1 {
		root = dbus.ObjectPath(env.Args[1])
	}

	ctx, cancel := context.WithTimeout(env.Context(), time.Minute)
	defer cancel()

	tasks := heapq.New(func(a, b objTask) int { return cmp.Compare(a.path, b.path) })
	tasks.Add(objTask{peer, root})

	for !tasks.IsEmpty() {
		t, _ := tasks.Pop()
		desc, err := conn.Peer(t.peer).Object(t.path).Introspect(ctx)
		if err != nil {
			fmt.Printf("introspecting %s%s: %v\n", t.peer, t.path, err)
			continue
		}
		names := make([]string, 0, len(desc.Interfaces))
		for name := range desc.Interfaces {
			names = append(names, name)
		}
		slices.Sort(names)
		fmt.Println(t.path)
		for _, name := range names {
			fmt.Printf("  %s\n", desc.Interfaces[name])
		}
		for _, child := range desc.Children {
			childPath := t.path
			if childPath == "/" {
				childPath = dbus.ObjectPath("/" + child)
			} else {
				childPath = dbus.ObjectPath(string(childPath) + "/" + child)
			}
			tasks.Add(objTask{t.peer, childPath})
		}
	}
	return nil
}

func runPing(env *command.Env, peer string) error {
	conn, err := busConn(env.Context())
	if err != nil {
		return fmt.Errorf("connecting to bus: %w", err)
	}
	defer conn.Disconnect()

	if err := conn.Peer(dbus.BusName(peer)).Ping(env.Context()); err != nil {
		return fmt.Errorf("pinging %s: %w", peer, err)
	}
	return nil
}

func runWhois(env *command.Env, peer string) error {
	conn, err := busConn(env.Context())
	if err != nil {
		return fmt.Errorf("connecting to bus: %w", err)
	}
	defer conn.Disconnect()

	name := dbus.BusName(peer)
	uid, err := conn.GetPeerUID(env.Context(), name)
	if err != nil {
		return fmt.Errorf("getting uid of %s: %w", peer, err)
	}
	pid, err := conn.GetPeerPID(env.Context(), name)
	if err != nil {
		return fmt.Errorf("getting pid of %s: %w", peer, err)
	}
	fmt.Println("UID:", uid)
	fmt.Println("PID:", pid)
	return nil
}

func runListen(env *command.Env) error {
	conn, err := busConn(env.Context())
	if err != nil {
		return fmt.Errorf("connecting to bus: %w", err)
	}
	defer conn.Disconnect()

	var m dbus.Match
	if err := conn.Listen(env.Context(), m, func(sig *dbus.Signal) {
		fmt.Printf("%s.%s from %s on %s:\n  %# v\n\n", sig.Interface, sig.Member, sig.Sender, sig.Path, pretty.Formatter(sig.Body))
	}); err != nil {
		return fmt.Errorf("registering match: %w", err)
	}

	fmt.Println("Listening for signals...")
	<-env.Context().Done()
	return nil
}

func runFeatures(env *command.Env) error {
	conn, err := busConn(env.Context())
	if err != nil {
		return fmt.Errorf("connecting to bus: %w", err)
	}
	defer conn.Disconnect()

	features, err := conn.Features(env.Context())
	if err != nil {
		return fmt.Errorf("listing bus features: %w", err)
	}
	slices.Sort(features)
	for _, f := range features {
		fmt.Println(f)
	}
	return nil
}

func runCall(env *command.Env) error {
	if len(env.Args) != 4 {
		return env.Usagef("call requires exactly 4 arguments: peer path interface member")
	}
	peer, path, iface, member := env.Args[0], env.Args[1], env.Args[2], env.Args[3]

	conn, err := busConn(env.Context())
	if err != nil {
		return fmt.Errorf("connecting to bus: %w", err)
	}
	defer conn.Disconnect()

	ctx, cancel := context.WithTimeout(env.Context(), time.Minute)
	defer cancel()
	body, err := conn.Call(ctx, dbus.BusName(peer), dbus.ObjectPath(path), dbus.InterfaceName(iface), dbus.MemberName(member))
	if err != nil {
		return fmt.Errorf("calling %s.%s: %w", iface, member, err)
	}
	fmt.Printf("%# v\n", pretty.Formatter(body))
	return nil
}
