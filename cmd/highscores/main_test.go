package main

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	service "github.com/okian/highscores/internal/app"
	"github.com/okian/highscores/internal/config"
	"github.com/okian/highscores/pkg/logger"
)

func TestRootCommand(t *testing.T) {
	convey.Convey("Given the root command", t, func() {
		root := newRootCmd()

		convey.Convey("Then it should expose serve, initdb and loadtest", func() {
			for _, name := range []string{"serve", "initdb", "loadtest"} {
				cmd, _, err := root.Find([]string{name})
				convey.So(err, convey.ShouldBeNil)
				convey.So(cmd.Name(), convey.ShouldEqual, name)
			}
			convey.So(root.PersistentFlags().Lookup("config"), convey.ShouldNotBeNil)
			convey.So(root.RunE, convey.ShouldNotBeNil)
		})
	})
}

func TestInitDBCommand(t *testing.T) {
	convey.Convey("Given a database path in the environment", t, func() {
		dbPath := filepath.Join(t.TempDir(), "leaderboard.db")
		_ = os.Setenv("LEADERBOARD_DB_PATH", dbPath)
		defer func() { _ = os.Unsetenv("LEADERBOARD_DB_PATH") }()

		convey.Convey("When running initdb", func() {
			root := newRootCmd()
			root.SetArgs([]string{"initdb"})
			err := root.ExecuteContext(context.Background())

			convey.Convey("Then the database file should exist", func() {
				convey.So(err, convey.ShouldBeNil)
				_, statErr := os.Stat(dbPath)
				convey.So(statErr, convey.ShouldBeNil)
			})
		})
	})

	convey.Convey("Given a config file that does not exist", t, func() {
		root := newRootCmd()
		root.SetArgs([]string{"initdb", "--config", "/non/existent/config.yaml"})

		convey.Convey("Then initdb should fail", func() {
			convey.So(root.ExecuteContext(context.Background()), convey.ShouldNotBeNil)
		})
	})
}

func TestNewHandler(t *testing.T) {
	convey.Convey("Given a started service", t, func() {
		_ = logger.Init()
		ctx := context.Background()
		svc := service.New(service.WithDBPath(filepath.Join(t.TempDir(), "leaderboard.db")))
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer svc.Stop()

		h := newHandler(ctx, svc)

		convey.Convey("Then the API and docs routes should be served", func() {
			for _, path := range []string{"/leaderboard", "/healthz", "/stats", "/api-docs", "/openapi.yaml"} {
				w := httptest.NewRecorder()
				h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
				convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
			}
		})

		convey.Convey("And the metrics updaters should run without panicking", func() {
			convey.So(updateSystemMetrics, convey.ShouldNotPanic)
			convey.So(func() { updateServiceMetrics(ctx, svc) }, convey.ShouldNotPanic)

			short, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
			defer cancel()
			convey.So(func() { startSystemMetricsUpdater(short) }, convey.ShouldNotPanic)
		})
	})
}

func TestServe(t *testing.T) {
	convey.Convey("Given a config on a free port", t, func() {
		_ = logger.Init()
		l, err := net.Listen("tcp", "127.0.0.1:0")
		convey.So(err, convey.ShouldBeNil)
		port := l.Addr().(*net.TCPAddr).Port
		_ = l.Close()

		cfg := config.New()
		cfg.Domain = "127.0.0.1"
		cfg.Port = port
		cfg.DBPath = filepath.Join(t.TempDir(), "leaderboard.db")

		convey.Convey("When serving until cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan error, 1)
			go func() { done <- serve(ctx, cfg) }()

			url := "http://127.0.0.1:" + strconv.Itoa(port) + "/leaderboard"
			var status int
			for i := 0; i < 100; i++ {
				if resp, err := http.Get(url); err == nil {
					status = resp.StatusCode
					_ = resp.Body.Close()
					break
				}
				time.Sleep(20 * time.Millisecond)
			}
			cancel()

			convey.Convey("Then it should answer and shut down cleanly", func() {
				convey.So(status, convey.ShouldEqual, http.StatusOK)
				select {
				case err := <-done:
					convey.So(err, convey.ShouldBeNil)
				case <-time.After(5 * time.Second):
					t.Fatal("serve did not return after cancellation")
				}
			})
		})
	})
}
