package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"regexp"
	"syscall"
	"time"

	"github.com/creachadair/command"
	"github.com/creachadair/flax"
	"github.com/danderson/nirum"
	"github.com/danderson/nirum/internal/fixture"
	nirumotel "github.com/danderson/nirum/otel"
	"github.com/danderson/nirum/wire"
	"github.com/kr/pretty"
)

var globalArgs struct {
	LogLevel  string        `flag:"log-level,default=info,Minimum log level (debug, info, warn, error)"`
	LogFormat string        `flag:"log-format,default=text,Log format (text, json)"`
	Timeout   time.Duration `flag:"timeout,default=30s,Timeout for client requests"`
	Compress  bool          `flag:"compress,Compress client requests and accept compressed responses"`
}

var serveArgs struct {
	Addr     string `flag:"addr,default=:8080,Address to listen on"`
	Compress bool   `flag:"compress,Compress responses for clients that accept it"`
	Otel     bool   `flag:"otel,Export traces and metrics to stdout"`
}

func main() {
	root := &command.C{
		Name:     "nirum",
		Usage:    "command args...",
		SetFlags: command.Flags(flax.MustBind, &globalArgs),
		Commands: []*command.C{
			{
				Name:  "ping",
				Usage: "ping url",
				Help:  "Check that the service at url is healthy.",
				Run:   command.Adapt(runPing),
			},
			{
				Name:  "call",
				Usage: "call url method [json-object]",
				Help: `Call a method of the service at url.

The method is given by its behind name, as it appears on the wire. The
arguments are a JSON object of serialized arguments keyed by parameter
behind name, and are sent unchanged. If omitted, no arguments are
sent.

The response status and decoded body are printed.`,
				Run: runCall,
			},
			{
				Name:  "describe",
				Usage: "describe [method-regexp]",
				Help:  "Describe the example music service, or the methods matching a regexp.",
				Run:   runDescribe,
			},
			{
				Name:  "serve",
				Usage: "serve",
				Help: `Serve the example music service.

The service knows the music of a handful of artists:

  get_music_by_artist_name(artist_name: text) -> [text]
  find_artist(norae: text) -> text

Try it with:

  nirum call http://localhost:8080/ get_music_by_artist_name '{"artist_name": "damien rice"}'`,
				SetFlags: command.Flags(flax.MustBind, &serveArgs),
				Run:      command.Adapt(runServe),
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

func client(url string) (*nirum.Client, error) {
	return nirum.NewClient(url, fixture.MusicService, nirum.ClientOptions{
		Compress: globalArgs.Compress,
		Logger:   newLogger(globalArgs.LogLevel, globalArgs.LogFormat, os.Stderr),
	})
}

func runPing(env *command.Env, url string) error {
	c, err := client(url)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(env.Context(), globalArgs.Timeout)
	defer cancel()
	if err := c.Ping(ctx); err != nil {
		return fmt.Errorf("pinging %s: %w", c.URL(), err)
	}
	fmt.Println("ok")
	return nil
}

func runCall(env *command.Env) error {
	if len(env.Args) < 2 || len(env.Args) > 3 {
		return env.Usagef("wrong number of arguments")
	}
	args := growTo(env.Args, 3)
	url, method, payload := args[0], args[1], args[2]
	if payload == "" {
		payload = "{}"
	}
	tree, err := wire.Unmarshal([]byte(payload))
	if err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	if _, ok := tree.(map[string]any); !ok {
		return fmt.Errorf("invalid arguments: %s is not a JSON object", wire.KindOf(tree))
	}

	c, err := client(url)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(env.Context(), globalArgs.Timeout)
	defer cancel()
	resp, err := c.CallRaw(ctx, method, []byte(payload))
	if err != nil {
		return fmt.Errorf("calling %s: %w", method, err)
	}

	fmt.Printf("%d %s\n", resp.StatusCode, http.StatusText(resp.StatusCode))
	body, err := wire.Unmarshal(resp.Body)
	if err != nil {
		fmt.Println(string(resp.Body))
		return nil
	}
	if e, ok := wire.ParseError(body); ok {
		fmt.Println(e)
		return nil
	}
	pretty.Println(body)
	return nil
}

func runDescribe(env *command.Env) error {
	if len(env.Args) > 1 {
		return env.Usagef("too many arguments")
	}
	args := growTo(env.Args, 1)
	mf, err := regexp.Compile(args[0])
	if err != nil {
		return err
	}

	var out indenter
	out.v(fixture.MusicService.Name)
	out.indent(1)
	for _, m := range sortedMethods(fixture.MusicService, mf) {
		out.s(signature(m))
	}
	return nil
}

func runServe(env *command.Env) error {
	log := newLogger(globalArgs.LogLevel, globalArgs.LogFormat, os.Stderr)

	srv := fixture.NewMusicServer(nirum.ServerOptions{
		Logger:   log,
		Compress: serveArgs.Compress,
	})
	if serveArgs.Otel {
		shutdown, err := setupOtel(os.Stdout)
		if err != nil {
			return fmt.Errorf("setting up OpenTelemetry: %w", err)
		}
		defer shutdownLogged(log, "OpenTelemetry", shutdown)
		nirumotel.InstrumentServer(srv, nirumotel.DefaultConfig())
	}

	hs := &http.Server{
		Addr:        serveArgs.Addr,
		Handler:     srv,
		BaseContext: func(net.Listener) context.Context { return env.Context() },
		ErrorLog:    slog.NewLogLogger(log.Handler(), slog.LevelError),
	}
	go func() {
		<-env.Context().Done()
		shutdownLogged(log, "HTTP server", hs.Shutdown)
	}()

	log.Info("serving", "service", srv.Service().Name, "addr", serveArgs.Addr)
	if err := hs.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
