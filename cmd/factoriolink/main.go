// Main package for the factoriolink headless client: connects to a
// Factorio 2.0 multiplayer server over UDP, drains its event stream
// to the log, and optionally prints a summary table once the map
// transfer completes.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"syscall"

	"github.com/olekukonko/tablewriter"
	"go.uber.org/zap"

	"github.com/tindalos-systems/factoriolink/internal/config"
	"github.com/tindalos-systems/factoriolink/pkg/protocol"
	"github.com/tindalos-systems/factoriolink/pkg/savedecode"
	"github.com/tindalos-systems/factoriolink/pkg/session"
)

func main() {
	logger := zap.Must(zap.NewProduction())
	if os.Getenv("APP_ENV") != "production" {
		logger = zap.Must(zap.NewDevelopment())
	}
	defer logger.Sync()

	serverAddr := flag.String("server", "127.0.0.1:34197", "Factorio server address (host:port)")
	username := flag.String("username", "factoriolink", "Username to present during the handshake")
	password := flag.String("password", "", "Password hash, if the server requires one")
	versionMajor := flag.Int("version-major", 2, "Application version major component to present")
	versionMinor := flag.Int("version-minor", 0, "Application version minor component to present")
	versionPatch := flag.Int("version-patch", 28, "Application version patch component to present")
	heartbeatHz := flag.Int("heartbeat-hz", config.DefaultHeartbeatHz, "Client heartbeat rate")
	showSummary := flag.Bool("summary", false, "Print a world snapshot summary table after WorldReady")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	sess, err := session.Connect(ctx, session.Params{
		ServerAddr: *serverAddr,
		Version: protocol.ApplicationVersion{
			Major: uint16(*versionMajor),
			Minor: uint16(*versionMinor),
			Patch: uint16(*versionPatch),
		},
		Credentials: protocol.Credentials{
			Username:     *username,
			PasswordHash: *password,
		},
		Config: config.Config{
			HeartbeatHz: *heartbeatHz,
		},
		Logger: logger,
	})
	if err != nil {
		logger.Error("failed to connect", zap.Error(err))
		os.Exit(1)
	}
	defer sess.Disconnect()

	events := sess.Events()
	for {
		select {
		case <-ctx.Done():
			logger.Info("shutting down")
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			logEvent(logger, ev)
			if ev.Kind == session.EventWorldReady && *showSummary {
				printSummary(ev.Snapshot)
			}
			if ev.Kind == session.EventDisconnected {
				return
			}
		}
	}
}

func logEvent(logger *zap.Logger, ev session.Event) {
	switch ev.Kind {
	case session.EventConnecting:
		logger.Info("connecting", zap.String("phase", ev.Phase))
	case session.EventConnected:
		logger.Info("connected", zap.Uint16("playerId", ev.PlayerID))
	case session.EventMapProgress:
		logger.Info("map transfer progress", zap.Uint32("received", ev.Received), zap.Uint32("total", ev.Total))
	case session.EventWorldReady:
		logger.Info("world ready",
			zap.Int("prototypes", len(ev.Snapshot.Prototypes)),
			zap.Int("entities", len(ev.Snapshot.Entities)),
			zap.Bool("truncated", ev.Snapshot.Truncated))
	case session.EventTickConfirmed:
		logger.Debug("tick confirmed", zap.Uint32("tick", ev.Tick), zap.Uint32("checksum", ev.Checksum))
	case session.EventDesyncSuspected:
		logger.Warn("desync suspected", zap.Uint32("tick", ev.Tick), zap.Uint32("expected", ev.Expected), zap.Uint32("got", ev.Got))
	case session.EventDisconnected:
		logger.Warn("disconnected", zap.String("reason", ev.DisconnectReason.String()))
	case session.EventProtocolError:
		logger.Warn("protocol error", zap.String("kind", ev.ErrorKind), zap.String("context", ev.ErrorContext))
	}
}

func printSummary(snap savedecode.WorldSnapshot) {
	tw := tablewriter.NewWriter(os.Stdout)
	tw.SetHeader([]string{"Category", "Count"})
	tw.SetBorder(true)
	tw.Append([]string{"Prototypes", strconv.Itoa(len(snap.Prototypes))})
	tw.Append([]string{"Entities", strconv.Itoa(len(snap.Entities))})
	if snap.Truncated {
		tw.Append([]string{"Entities (truncated)", "true"})
	}

	names := make([]string, 0, len(snap.ResourceTiles))
	for name := range snap.ResourceTiles {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		tw.Append([]string{fmt.Sprintf("Resource: %s", name), strconv.Itoa(snap.ResourceTiles[name])})
	}

	tw.Render()
}
