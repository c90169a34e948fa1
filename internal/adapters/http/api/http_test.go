package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/highscores/internal/adapters/http/api"
	"github.com/okian/highscores/internal/adapters/mq/feed"
	"github.com/okian/highscores/internal/adapters/repository"
	"github.com/okian/highscores/internal/domain/guard"
	"github.com/okian/highscores/internal/domain/leaderboard"
	"github.com/okian/highscores/internal/domain/model"
	"github.com/okian/highscores/pkg/logger"
)

func init() {
	_ = logger.Init(logger.WithOutput(io.Discard))
}

// fakeLeaderboard returns canned results and records the last request.
type fakeLeaderboard struct {
	entries   []model.LeaderboardEntry
	score     int64
	reg       model.Registration
	err       error
	lastReg   model.RegisterRequest
	lastUpd   model.UpdateRequest
	lastID    int64
	registers int
	updates   int
}

func (f *fakeLeaderboard) RegisterUser(_ context.Context, req model.RegisterRequest) (model.Registration, error) {
	f.registers++
	f.lastReg = req
	return f.reg, f.err
}

func (f *fakeLeaderboard) UpdateScore(_ context.Context, req model.UpdateRequest) (model.ScoreUpdate, error) {
	f.updates++
	f.lastUpd = req
	if f.err != nil {
		return model.ScoreUpdate{}, f.err
	}
	return model.ScoreUpdate{ID: req.ID, Highscore: req.Highscore}, nil
}

func (f *fakeLeaderboard) GetHighscore(_ context.Context, id int64) (int64, error) {
	f.lastID = id
	return f.score, f.err
}

func (f *fakeLeaderboard) GetLeaderboard(context.Context) ([]model.LeaderboardEntry, error) {
	return f.entries, f.err
}

type fakeStats map[string]any

func (s fakeStats) GetStats(context.Context) map[string]any { return s }

func newMux(lb api.Leaderboard, source api.FeedSource) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(lb, fakeStats{"started": true}, source).Register(context.Background(), mux)
	return mux
}

func do(mux http.Handler, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestServer_Routes(t *testing.T) {
	Convey("Given a server over a fake leaderboard", t, func() {
		lb := &fakeLeaderboard{}
		mux := newMux(lb, nil)

		Convey("The health endpoint should expose metrics", func() {
			w := do(mux, http.MethodGet, "/healthz")
			So(w.Code, ShouldEqual, http.StatusOK)
		})

		Convey("The stats endpoint should return the provider's map", func() {
			w := do(mux, http.MethodGet, "/stats")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"started":true`)
		})

		Convey("Every response should carry a request id", func() {
			w := do(mux, http.MethodGet, "/leaderboard")
			So(w.Header().Get(api.RequestIDHeader), ShouldNotBeEmpty)

			req := httptest.NewRequest(http.MethodGet, "/leaderboard", nil)
			req.Header.Set(api.RequestIDHeader, "abc-123")
			w = httptest.NewRecorder()
			mux.ServeHTTP(w, req)
			So(w.Header().Get(api.RequestIDHeader), ShouldEqual, "abc-123")
		})

		Convey("Unsupported methods should be rejected", func() {
			w := do(mux, http.MethodDelete, "/leaderboard")
			So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
		})

		Convey("The feed should not be routed without a source", func() {
			w := do(mux, http.MethodGet, "/feed")
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestLeaderboardHandler(t *testing.T) {
	Convey("Given a server over a fake leaderboard", t, func() {
		lb := &fakeLeaderboard{}
		mux := newMux(lb, nil)

		Convey("GET /leaderboard should wrap entries in a leaderboard field", func() {
			lb.entries = []model.LeaderboardEntry{{ID: 2, Username: "bob", Highscore: 20, DateCreated: "2026-01-01T00:00:00Z"}}
			w := do(mux, http.MethodGet, "/leaderboard")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Header().Get("Content-Type"), ShouldStartWith, "application/json")

			var body map[string][]map[string]any
			So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
			So(body["leaderboard"], ShouldHaveLength, 1)
			So(body["leaderboard"][0]["username"], ShouldEqual, "bob")
			So(body["leaderboard"][0]["date_created"], ShouldEqual, "2026-01-01T00:00:00Z")
		})

		Convey("GET /leaderboard with no entries should return an empty array", func() {
			lb.entries = []model.LeaderboardEntry{}
			w := do(mux, http.MethodGet, "/leaderboard")
			So(strings.TrimSpace(w.Body.String()), ShouldEqual, `{"leaderboard":[]}`)
		})

		Convey("GET /leaderboard/{id} should return the bare score", func() {
			lb.score = 42
			w := do(mux, http.MethodGet, "/leaderboard/7")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(strings.TrimSpace(w.Body.String()), ShouldEqual, "42")
			So(lb.lastID, ShouldEqual, 7)
		})

		Convey("GET /leaderboard/{id} with a non-numeric id should be a bad request", func() {
			w := do(mux, http.MethodGet, "/leaderboard/abc")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("POST with a username should register", func() {
			lb.reg = model.Registration{
				Outcome:  model.OutcomeCreated,
				Username: "alice",
				Entry:    model.LeaderboardEntry{ID: 1, Username: "alice", Highscore: 10},
			}
			w := do(mux, http.MethodPost, "/leaderboard/alice/10")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(lb.lastReg, ShouldResemble, model.RegisterRequest{Username: "alice", Highscore: 10})
			So(w.Body.String(), ShouldContainSubstring, `"status":"created"`)
			So(w.Body.String(), ShouldContainSubstring, `"entry":{"id":1`)
		})

		Convey("POST for an existing username should report it", func() {
			lb.reg = model.Registration{Outcome: model.OutcomeAlreadyExists, Username: "alice"}
			w := do(mux, http.MethodPost, "/leaderboard/alice/99")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"status":"already_exists"`)
			So(w.Body.String(), ShouldNotContainSubstring, `"entry"`)
		})

		Convey("POST with a numeric first segment should update", func() {
			w := do(mux, http.MethodPost, "/leaderboard/1/30")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(lb.updates, ShouldEqual, 1)
			So(lb.registers, ShouldEqual, 0)
			So(lb.lastUpd, ShouldResemble, model.UpdateRequest{ID: 1, Highscore: 30})
			So(w.Body.String(), ShouldContainSubstring, `"status":"updated"`)
		})

		Convey("POST with a signed first segment should update", func() {
			So(do(mux, http.MethodPost, "/leaderboard/+5/1").Code, ShouldEqual, http.StatusOK)
			So(lb.lastUpd, ShouldResemble, model.UpdateRequest{ID: 5, Highscore: 1})
			do(mux, http.MethodPost, "/leaderboard/-3/1")
			So(lb.lastUpd, ShouldResemble, model.UpdateRequest{ID: -3, Highscore: 1})
			So(lb.updates, ShouldEqual, 2)
			So(lb.registers, ShouldEqual, 0)
		})

		Convey("PUT should update", func() {
			w := do(mux, http.MethodPut, "/leaderboard/3/-5")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(lb.lastUpd, ShouldResemble, model.UpdateRequest{ID: 3, Highscore: -5})
		})

		Convey("A non-numeric score should be a bad request", func() {
			So(do(mux, http.MethodPost, "/leaderboard/alice/lots").Code, ShouldEqual, http.StatusBadRequest)
			So(do(mux, http.MethodPost, "/leaderboard/1/lots").Code, ShouldEqual, http.StatusBadRequest)
			So(do(mux, http.MethodPut, "/leaderboard/x/1").Code, ShouldEqual, http.StatusBadRequest)
			So(lb.registers+lb.updates, ShouldEqual, 0)
		})

		Convey("A missing id should be not found", func() {
			lb.err = fmt.Errorf("id 9: %w", leaderboard.ErrNotFound)
			So(do(mux, http.MethodGet, "/leaderboard/9").Code, ShouldEqual, http.StatusNotFound)
			So(do(mux, http.MethodPost, "/leaderboard/9/1").Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("A rejected registration should be a bad request", func() {
			lb.err = fmt.Errorf("%w: username must not be empty", leaderboard.ErrInvalidRequest)
			So(do(mux, http.MethodPost, "/leaderboard/%20/1").Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("A store failure should be an opaque server error", func() {
			lb.err = fmt.Errorf("%w: disk I/O error", repository.ErrStoreWrite)
			w := do(mux, http.MethodPost, "/leaderboard/alice/1")
			So(w.Code, ShouldEqual, http.StatusInternalServerError)
			So(w.Body.String(), ShouldContainSubstring, `"code":"internal_error"`)
			So(w.Body.String(), ShouldNotContainSubstring, "disk")
		})
	})
}

func TestLeaderboardHandler_EndToEnd(t *testing.T) {
	Convey("Given a server over a real SQLite leaderboard", t, func() {
		ctx := context.Background()
		store, err := repository.Open(ctx, filepath.Join(t.TempDir(), "leaderboard.db"))
		So(err, ShouldBeNil)
		defer store.Close()
		So(store.Initialize(ctx), ShouldBeNil)
		mux := newMux(leaderboard.New(guard.New(store)), nil)

		listing := func() []model.LeaderboardEntry {
			var body struct {
				Leaderboard []model.LeaderboardEntry `json:"leaderboard"`
			}
			w := do(mux, http.MethodGet, "/leaderboard")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
			return body.Leaderboard
		}

		Convey("The alice and bob walkthrough should hold", func() {
			So(do(mux, http.MethodPost, "/leaderboard/alice/10").Code, ShouldEqual, http.StatusOK)
			got := listing()
			So(got, ShouldHaveLength, 1)
			So(got[0].ID, ShouldEqual, 1)

			So(do(mux, http.MethodPost, "/leaderboard/bob/20").Code, ShouldEqual, http.StatusOK)
			got = listing()
			So(got[0].Username, ShouldEqual, "bob")
			So(got[1].Username, ShouldEqual, "alice")

			So(do(mux, http.MethodPost, "/leaderboard/1/30").Code, ShouldEqual, http.StatusOK)
			So(strings.TrimSpace(do(mux, http.MethodGet, "/leaderboard/1").Body.String()), ShouldEqual, "30")
			got = listing()
			So(got[0].Username, ShouldEqual, "alice")

			w := do(mux, http.MethodPost, "/leaderboard/alice/99")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "already_exists")
			So(strings.TrimSpace(do(mux, http.MethodGet, "/leaderboard/1").Body.String()), ShouldEqual, "30")

			So(do(mux, http.MethodGet, "/leaderboard/999").Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestFeedHandler(t *testing.T) {
	Convey("Given a server with a change feed", t, func() {
		hub := feed.NewHub()
		srv := httptest.NewServer(newMux(&fakeLeaderboard{}, hub))
		defer srv.Close()

		conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/feed", nil)
		So(err, ShouldBeNil)
		defer conn.Close()

		waitForSubscribers(hub, 1)

		Convey("Published changes should arrive as JSON messages", func() {
			at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
			hub.Publish(context.Background(), model.ChangeEvent{Kind: model.ChangeRegistered, ID: 1, Username: "alice", Highscore: 10, At: at})

			_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
			var ev model.ChangeEvent
			So(conn.ReadJSON(&ev), ShouldBeNil)
			So(ev.Kind, ShouldEqual, model.ChangeRegistered)
			So(ev.Username, ShouldEqual, "alice")
			So(ev.At.Equal(at), ShouldBeTrue)
		})

		Convey("Closing the hub should close the stream", func() {
			So(hub.Close(), ShouldBeNil)

			_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
			_, _, err := conn.ReadMessage()
			var closeErr *websocket.CloseError
			So(errors.As(err, &closeErr), ShouldBeTrue)
			So(closeErr.Code, ShouldEqual, websocket.CloseGoingAway)
		})

		Convey("A client disconnect should unsubscribe", func() {
			So(conn.Close(), ShouldBeNil)
			waitForSubscribers(hub, 0)
			So(hub.Subscribers(), ShouldEqual, 0)
		})
	})
}

func waitForSubscribers(hub *feed.Hub, n int) {
	deadline := time.Now().Add(2 * time.Second)
	for hub.Subscribers() != n && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
}
