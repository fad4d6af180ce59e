package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/Kalyan-sundar1/Speech-to-Speech-Mini/internal/call"
	"github.com/Kalyan-sundar1/Speech-to-Speech-Mini/internal/capture"
	"github.com/Kalyan-sundar1/Speech-to-Speech-Mini/internal/channel"
	"github.com/Kalyan-sundar1/Speech-to-Speech-Mini/internal/directory"
	"github.com/Kalyan-sundar1/Speech-to-Speech-Mini/internal/metrics"
	"github.com/Kalyan-sundar1/Speech-to-Speech-Mini/internal/playback"
	"github.com/Kalyan-sundar1/Speech-to-Speech-Mini/internal/protocol"
)

func main() {
	godotenv.Load()
	// Logs go to stderr so transcripts on stdout stay readable.
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))

	cfg := loadConfig()

	if cfg.metricsAddr != "" {
		go func() {
			if err := metrics.Serve(cfg.metricsAddr); err != nil {
				slog.Error("metrics server failed", "error", err)
			}
		}()
	}

	var mgr *channel.Manager
	c := call.New(call.Config{
		Dial: func(ctx context.Context) (call.Sender, error) {
			m, err := channel.Dial(ctx, cfg.serverWSURL)
			if err != nil {
				return nil, err
			}
			mgr = m
			return m, nil
		},
		NewPlayer: func() (playback.Player, error) {
			return playback.NewFFplayPlayer(cfg.playSampleRate)
		},
		Mic: func() (capture.Source, error) {
			return capture.NewFFmpegSource(cfg.micSampleRate)
		},
		Decoder:    playback.WAVDecoder{},
		SampleRate: cfg.micSampleRate,
		Callbacks: call.Callbacks{
			OnPartialTranscript: func(text string) {
				fmt.Printf("\r  you: %s", text)
			},
			OnFinalTranscript: func(text string, confidence float64) {
				fmt.Printf("\r  you: %s  (%.2f)\n", text, confidence)
			},
			OnAssistantText: func(text string, isFinal bool) {
				if isFinal {
					fmt.Printf("  assistant: %s\n", text)
				}
			},
			OnError: func(msg string) {
				if msg != "" {
					fmt.Printf("  ! %s\n", msg)
				}
			},
			OnStatus: func(status string) {
				fmt.Printf("  [%s]\n", status)
			},
		},
	})

	dialCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	err := c.Start(dialCtx)
	cancel()
	if err != nil {
		slog.Error("call start failed", "error", err)
		os.Exit(1)
	}

	disp := protocol.NewDispatcher(c)
	go func() {
		runErr := mgr.Run(disp.Dispatch)
		c.OnChannelClosed(runErr)
	}()

	dir := directory.NewClient(cfg.directoryURL)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		c.HangUp()
		os.Exit(0)
	}()

	printHelp()
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		switch strings.TrimSpace(scanner.Text()) {
		case "/talk":
			c.BeginTurn()
		case "/stop":
			c.EndTurn()
		case "/sessions":
			printSessions(dir)
		case "/trace":
			printTrace(c)
		case "/latency":
			printLatency(c)
		case "/end":
			c.HangUp()
			return
		case "":
		default:
			printHelp()
		}
	}
	c.HangUp()
}

func printHelp() {
	fmt.Println("commands:")
	fmt.Println("  /talk      start speaking (hold the floor)")
	fmt.Println("  /stop      stop speaking, wait for the reply")
	fmt.Println("  /sessions  list call sessions on the server")
	fmt.Println("  /trace     show recent pipeline trace events")
	fmt.Println("  /latency   show current turn latencies")
	fmt.Println("  /end       hang up and exit")
}

func printSessions(dir *directory.Client) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sessions, err := dir.ListSessions(ctx)
	if err != nil {
		fmt.Printf("  ! session listing failed: %v (showing last known)\n", err)
	}
	if len(sessions) == 0 {
		fmt.Println("  no sessions")
		return
	}
	for _, s := range sessions {
		ended := "-"
		if s.EndedAt != nil {
			ended = s.EndedAt.Format(time.RFC3339)
		}
		fmt.Printf("  %s  %-8s  started %s  ended %s\n",
			s.ID, s.Status, s.CreatedAt.Format(time.RFC3339), ended)
	}
}

func printTrace(c *call.Call) {
	events := c.Traces().Events()
	if len(events) == 0 {
		fmt.Println("  no trace events yet")
		return
	}
	for _, ev := range events {
		line := fmt.Sprintf("  %s  %s", ev.At.Format("15:04:05.000"), ev.Kind)
		if ev.TurnID != "" {
			line += "  turn=" + ev.TurnID
		}
		if ev.LatencyMs != nil {
			line += fmt.Sprintf("  %.0fms", *ev.LatencyMs)
		}
		if ev.Transcript != "" {
			line += fmt.Sprintf("  %q", ev.Transcript)
		}
		fmt.Println(line)
	}
}

func printLatency(c *call.Call) {
	rec := c.Latency()
	show := func(label string, v *float64) {
		if v == nil {
			fmt.Printf("  %-18s -\n", label)
			return
		}
		fmt.Printf("  %-18s %.0fms\n", label, *v)
	}
	show("first partial", rec.FirstPartialMs)
	show("final transcript", rec.FinalTranscriptMs)
	show("first audio", rec.FirstAudioMs)
}
