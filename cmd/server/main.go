/*
 * file: main.go
 * package: main
 * description:
 *     Entry point for the game server binary. Wires the example ruleset,
 *     map generator, optional audit sink, and protocol state machine
 *     together, then listens for TCP and (optionally) WebSocket clients.
 */
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/juan10024/reset-server/internal/audit"
	"github.com/juan10024/reset-server/internal/game"
	"github.com/juan10024/reset-server/internal/protocol"
	"github.com/juan10024/reset-server/internal/server"
	"github.com/juan10024/reset-server/internal/transport"
	"github.com/juan10024/reset-server/internal/worldmap"
)

func main() {
	os.Exit(run())
}

func run() int {
	var wsPort int
	var auditDSN string
	flag.IntVar(&wsPort, "ws-port", 0, "optional WebSocket listen port (0 disables WebSocket)")
	flag.StringVar(&auditDSN, "audit-dsn", os.Getenv("AUDIT_DSN"), "optional Postgres DSN for the append-only audit sink")
	flag.Parse()

	log := slog.Default()

	if flag.NArg() != 2 {
		fmt.Fprintln(os.Stderr, "usage: server [-ws-port N] [-audit-dsn DSN] host port")
		return 1
	}
	host, port := flag.Arg(0), flag.Arg(1)

	sink, err := buildAuditSink(auditDSN)
	if err != nil {
		log.Error("failed to open audit sink", "error", err)
		return 1
	}

	ruleset := game.BuildRuleset()
	srv := server.New(log)

	pg := protocol.NewPreGame(ruleset.Catalog, srv, func(players []*worldmap.Player, clientPlayer map[protocol.ClientID]int) {
		startGame(context.Background(), log, ruleset, srv, sink, players, clientPlayer)
	})
	srv.SetProtocol(pg)

	tcpAddr := net.JoinHostPort(host, port)
	listener, err := net.Listen("tcp", tcpAddr)
	if err != nil {
		log.Error("failed to listen", "addr", tcpAddr, "error", err)
		return 1
	}
	log.Info("listening for TCP clients", "addr", tcpAddr)

	errCh := make(chan error, 2)
	go func() { errCh <- serveTCP(listener, srv, log) }()

	if wsPort != 0 {
		wsAddr := net.JoinHostPort(host, fmt.Sprintf("%d", wsPort))
		log.Info("listening for WebSocket clients", "addr", wsAddr)
		go func() { errCh <- serveWS(wsAddr, srv, log) }()
	}

	if err := <-errCh; err != nil {
		log.Error("server exited", "error", err)
		return 1
	}
	return 0
}

func buildAuditSink(dsn string) (audit.Sink, error) {
	if dsn == "" {
		return audit.NoopSink{}, nil
	}
	return audit.OpenGormSink(dsn)
}

// startGame is the PreGame onStart callback: it generates a map for the
// joined players (already created at join time), registers executors,
// swaps in the InGame protocol, and records the session start with the
// audit sink.
func startGame(ctx context.Context, log *slog.Logger, ruleset *game.Ruleset, srv *server.Server, sink audit.Sink, players []*worldmap.Player, clientPlayer map[protocol.ClientID]int) {
	names := make([]string, 0, len(players))
	for _, p := range players {
		names = append(names, p.Name)
	}

	correlationID := uuid.NewString()
	log.Info("starting game", "correlation_id", correlationID, "players", names)

	gen := ruleset.BuildGenerator()
	m, err := gen.Generate(ctx, players)
	if err != nil {
		log.Error("map generation failed", "correlation_id", correlationID, "error", err)
		return
	}
	ruleset.RegisterExecutors(m)

	sessionID, err := sink.RecordSessionStart(ctx, names)
	if err != nil {
		log.Warn("audit session record failed", "error", err)
	}

	ig := protocol.NewInGame(ruleset.Catalog, m, srv, clientPlayer, sink, sessionID)
	srv.SetProtocol(ig)
	ig.Start(srv.ProtocolContext())
}

func serveTCP(listener net.Listener, srv *server.Server, log *slog.Logger) error {
	for {
		conn, err := listener.Accept()
		if err != nil {
			return err
		}
		go func() {
			tc := transport.NewTCPClient(conn)
			if err := srv.HandleConn(context.Background(), tc); err != nil {
				log.Warn("tcp connection ended", "error", err)
			}
		}()
	}
}

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func serveWS(addr string, srv *server.Server, log *slog.Logger) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := wsUpgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Warn("websocket upgrade failed", "error", err)
			return
		}
		tc := transport.NewWSClient(conn)
		if err := srv.HandleConn(r.Context(), tc); err != nil {
			log.Warn("websocket connection ended", "error", err)
		}
	})
	return http.ListenAndServe(addr, mux)
}
