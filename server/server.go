// Package server 以 HTTP 暴露推荐接口、模型热加载与 Prometheus 指标。
package server

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/rushteam/gcnrec/core"
	"github.com/rushteam/gcnrec/filter"
	"github.com/rushteam/gcnrec/pipeline"
	"github.com/rushteam/gcnrec/recall"
)

// Reloader 重新构图并加载最新模型。
type Reloader func(ctx context.Context) error

// Options 是 Server 的依赖。
type Options struct {
	Pipeline     *pipeline.Pipeline
	Engine       *recall.LightGCN
	Catalog      *recall.Catalog
	Reload       Reloader
	DefaultMood  string
	DefaultLimit int
	Logger       zerolog.Logger
}

// Server 处理推荐请求。
type Server struct {
	opts     Options
	exposed  []*filter.ExposedFilter
	reloadMu sync.Mutex
	logger   zerolog.Logger
}

func New(opts Options) *Server {
	if opts.DefaultMood == "" {
		opts.DefaultMood = recall.DefaultMood
	}
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = recall.DefaultLimit
	}
	s := &Server{
		opts:   opts,
		logger: opts.Logger.With().Str("component", "server").Logger(),
	}
	if opts.Pipeline != nil {
		s.exposed = filter.ExposedFilters(opts.Pipeline.Nodes)
	}
	return s
}

// Handler 返回路由：
//
//	GET  /healthz
//	GET  /v1/recommend?user=&mood=&limit=&project_code=
//	GET  /v1/model
//	POST /v1/reload
//	GET  /metrics
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", s.health)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/recommend", s.recommend)
		r.Get("/model", s.model)
		r.Post("/reload", s.reload)
	})
	r.Handle("/metrics", promhttp.Handler())
	return r
}

// ReloadNow 串行执行一次 Reload，供定时任务与 /v1/reload 共用。
func (s *Server) ReloadNow(ctx context.Context) error {
	if s.opts.Reload == nil {
		return nil
	}
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()
	return s.opts.Reload(ctx)
}

// RunReloader 每隔 interval 重新加载一次，直到 ctx 结束。失败只记日志，旧模型继续服务。
func (s *Server) RunReloader(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.ReloadNow(ctx); err != nil {
				s.logger.Warn().Err(err).Msg("scheduled reload failed, keeping current model")
			}
		}
	}
}

type itemView struct {
	ID          string  `json:"id"`
	Score       float64 `json:"score"`
	Title       string  `json:"title,omitempty"`
	ProjectCode string  `json:"project_code,omitempty"`
	Source      string  `json:"source,omitempty"`
}

type recommendResponse struct {
	UserID string     `json:"user_id"`
	Mood   string     `json:"mood"`
	Route  string     `json:"route,omitempty"`
	Reason string     `json:"reason,omitempty"`
	Items  []itemView `json:"items"`
}

func (s *Server) recommend(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	user := strings.TrimSpace(q.Get("user"))
	if user == "" {
		writeError(w, http.StatusBadRequest, "user is required")
		return
	}
	mood := strings.ToLower(strings.TrimSpace(q.Get("mood")))
	if mood == "" {
		mood = s.opts.DefaultMood
	}
	limit := s.opts.DefaultLimit
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	params := map[string]any{"mood": mood, "limit": limit}
	if pc := q.Get("project_code"); pc != "" {
		params["project_code"] = pc
	}
	rctx := &core.RecommendContext{UserID: user, Scene: "http", Params: params}

	items := []*core.Item{}
	if limit > 0 {
		var err error
		items, err = s.opts.Pipeline.Run(r.Context(), rctx, nil)
		if err != nil {
			s.logger.Error().Err(err).Str("user", user).Msg("recommend failed")
			writeError(w, http.StatusInternalServerError, "recommendation failed")
			return
		}
	}

	resp := recommendResponse{UserID: user, Mood: mood, Items: make([]itemView, 0, len(items))}
	if lbl, ok := rctx.GetLabel("route"); ok {
		resp.Route = lbl.Value
	}
	for _, it := range items {
		v := itemView{ID: it.ID, Score: it.Score}
		v.Title, _ = it.Meta["title"].(string)
		v.ProjectCode, _ = it.Meta["project_code"].(string)
		if lbl, ok := it.Labels["recall_source"]; ok {
			v.Source = lbl.Value
		}
		if lbl, ok := it.Labels["route_reason"]; ok && resp.Reason == "" {
			resp.Reason = lbl.Value
		}
		resp.Items = append(resp.Items, v)
	}
	s.markExposed(r.Context(), user, items)
	writeJSON(w, http.StatusOK, resp)
}

// markExposed 把本次返回的物品写入曝光记录，失败不影响响应。
func (s *Server) markExposed(ctx context.Context, user string, items []*core.Item) {
	if len(s.exposed) == 0 || len(items) == 0 {
		return
	}
	ids := core.ItemIDs(items)
	for _, f := range s.exposed {
		if err := f.MarkExposed(ctx, user, ids...); err != nil {
			s.logger.Warn().Err(err).Str("user", user).Msg("record exposure failed")
		}
	}
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":       "ok",
		"model_loaded": s.opts.Engine != nil && s.opts.Engine.Loaded(),
	})
}

func (s *Server) model(w http.ResponseWriter, _ *http.Request) {
	if s.opts.Engine == nil || !s.opts.Engine.Loaded() {
		writeError(w, http.StatusServiceUnavailable, "model not loaded")
		return
	}
	body := map[string]any{"run_id": s.opts.Engine.RunID()}
	if s.opts.Catalog != nil {
		body["catalog_items"] = s.opts.Catalog.Len()
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) reload(w http.ResponseWriter, r *http.Request) {
	if s.opts.Reload == nil {
		writeError(w, http.StatusNotImplemented, "reload not configured")
		return
	}
	if err := s.ReloadNow(r.Context()); err != nil {
		s.logger.Warn().Err(err).Msg("reload failed, keeping current model")
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	body := map[string]any{"status": "reloaded"}
	if s.opts.Engine != nil {
		body["run_id"] = s.opts.Engine.RunID()
	}
	writeJSON(w, http.StatusOK, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
