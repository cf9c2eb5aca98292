// Package sh provides an interactive shell driving a bridge over sim
// peripherals: inject bytes on one side, watch the frames the other side
// transmits.
package sh

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"strconv"

	"github.com/abiosoft/ishell"
	"github.com/golang/glog"

	"github.com/robotalks/bridge.go/pkg/bridge"
)

// Shell provides ishell backed interactive shell.
type Shell struct {
	Interactive bool
	OutputJSON  bool

	Shell   *ishell.Shell
	Session *Session
}

const (
	shellKey = "$shell"
	prompt   = "bridge > "
)

var (
	// flags

	evalOnly   bool
	outputJSON bool

	// commands
	commands = []*ishell.Cmd{
		&InjectCmd,
		&IdleCmd,
		&SentCmd,
		&CompleteCmd,
		&AutoCmd,
		&StatsCmd,
	}
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
}

// New creates a new shell.
func New(session *Session) *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		OutputJSON:  outputJSON,

		Shell:   ishell.New(),
		Session: session,
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(prompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// WithSide wraps a command func whose first argument is a side name.
func WithSide(fn func(c *ishell.Context, s *Shell, side string)) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		if len(c.Args) < 1 {
			c.Err(fmt.Errorf("side expected: %s or %s", bridge.SideSPI, bridge.SideUART))
			return
		}
		fn(c, ShellFrom(c), c.Args[0])
	}
}

// Print prints v as JSON or with the text formatter.
func (s *Shell) Print(c *ishell.Context, v interface{}, text func() string) {
	if !s.OutputJSON {
		c.Println(text())
		return
	}
	out, err := json.Marshal(v)
	if err != nil {
		c.Err(err)
		return
	}
	c.Println(string(out))
}

// Run runs the shell.
func (s *Shell) Run(args ...string) {
	if err := s.Session.Start(context.Background()); err != nil {
		glog.Exitf("start bridge failed: %v", err)
	}
	defer s.Session.Stop()

	if len(args) > 0 {
		if err := s.Shell.Process(args...); err != nil {
			glog.Exit(err)
		}
		return
	}
	if s.Interactive {
		s.Shell.Run()
		return
	}
	glog.Exit("command expected")
}

var (
	// InjectCmd feeds bytes into the receive buffer of a side.
	InjectCmd = ishell.Cmd{
		Name:    "inject",
		Aliases: []string{"i"},
		Help:    `SIDE DATA, e.g. inject spi AB\x00CD\x00`,
		Func: WithSide(func(c *ishell.Context, s *Shell, side string) {
			data, err := ParseData(c.Args[1:])
			if err != nil {
				c.Err(err)
				return
			}
			if err := s.Session.Inject(side, data); err != nil {
				c.Err(err)
				return
			}
			s.Print(c, len(data), func() string { return fmt.Sprintf("%d bytes", len(data)) })
		}),
	}

	// IdleCmd pads the current half of a side with zeros.
	IdleCmd = ishell.Cmd{
		Name: "idle",
		Help: "SIDE",
		Func: WithSide(func(c *ishell.Context, s *Shell, side string) {
			if err := s.Session.Idle(side); err != nil {
				c.Err(err)
				return
			}
			s.Print(c, true, func() string { return "OK" })
		}),
	}

	// SentCmd lists frames transmitted by a side.
	SentCmd = ishell.Cmd{
		Name:    "sent",
		Aliases: []string{"s"},
		Help:    "SIDE",
		Func: WithSide(func(c *ishell.Context, s *Shell, side string) {
			frames, err := s.Session.Sent(side)
			if err != nil {
				c.Err(err)
				return
			}
			payloads := make([]string, 0, len(frames))
			for _, f := range frames {
				payloads = append(payloads, string(f.Payload()))
			}
			s.Print(c, payloads, func() string {
				if len(frames) == 0 {
					return "No frames"
				}
				out := ""
				for n, f := range frames {
					out += fmt.Sprintf("%3d %s\n", n, FormatFrame(f))
				}
				return out[:len(out)-1]
			})
		}),
	}

	// CompleteCmd completes the pending transmission of a side.
	CompleteCmd = ishell.Cmd{
		Name:    "complete",
		Aliases: []string{"c"},
		Help:    "SIDE",
		Func: WithSide(func(c *ishell.Context, s *Shell, side string) {
			done, err := s.Session.Complete(side)
			if err != nil {
				c.Err(err)
				return
			}
			s.Print(c, done, func() string {
				if done {
					return "OK"
				}
				return "No pending transmission"
			})
		}),
	}

	// AutoCmd switches auto completion of transmissions.
	AutoCmd = ishell.Cmd{
		Name: "auto",
		Help: "SIDE on|off",
		Func: WithSide(func(c *ishell.Context, s *Shell, side string) {
			if len(c.Args) < 2 {
				c.Err(fmt.Errorf("on or off expected"))
				return
			}
			var auto bool
			switch c.Args[1] {
			case "on":
				auto = true
			case "off":
			default:
				var err error
				if auto, err = strconv.ParseBool(c.Args[1]); err != nil {
					c.Err(fmt.Errorf("on or off expected"))
					return
				}
			}
			if err := s.Session.SetAutoComplete(side, auto); err != nil {
				c.Err(err)
				return
			}
			s.Print(c, auto, func() string { return "OK" })
		}),
	}

	// StatsCmd prints the counters of both or one side.
	StatsCmd = ishell.Cmd{
		Name: "stats",
		Help: "[SIDE]",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			names := []string{bridge.SideSPI, bridge.SideUART}
			if len(c.Args) > 0 {
				names = c.Args[:1]
			}
			result := make(map[string]bridge.StatsSnapshot)
			for _, name := range names {
				snap, err := s.Session.Stats(name)
				if err != nil {
					c.Err(err)
					return
				}
				result[name] = snap
			}
			s.Print(c, result, func() string {
				out := ""
				for _, name := range names {
					encoded, _ := json.MarshalIndent(result[name], "  ", "  ")
					out += fmt.Sprintf("%s:\n  %s\n", name, encoded)
				}
				return out[:len(out)-1]
			})
		},
	}
)

// Main is a helper to provide a single call in main.
func Main() {
	flag.Parse()
	session, err := NewSession()
	if err != nil {
		glog.Exit(err)
	}
	New(session).Run(flag.Args()...)
}
