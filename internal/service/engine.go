// Package service implements one request/response cycle of the protocol engine.
package service

import (
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"time"

	"authsrv-go/internal/auth"
	"authsrv-go/internal/config"
	"authsrv-go/internal/metrics"
	"authsrv-go/internal/model"
	"authsrv-go/internal/protocol"
	"authsrv-go/internal/resolver"
	"authsrv-go/internal/resource"
)

// Pages names the resources rendered by the engine itself.
type Pages struct {
	Root     string
	Auth     string
	NotFound string
}

// Engine turns a received buffer into the bytes to send back. It holds only
// read-only state and is safe for concurrent use by connection workers.
type Engine struct {
	parser      *protocol.Parser
	resolver    *resolver.Resolver
	auth        *auth.Authenticator
	store       resource.Store
	mimes       resource.MIMETable
	pages       Pages
	realm       string
	dropMissing bool
	logger      *slog.Logger
	metrics     *metrics.Metrics
}

// NewEngine creates an Engine. The metrics parameter is optional; pass nil to
// disable recording.
func NewEngine(
	cfg *config.Config,
	res *resolver.Resolver,
	authn *auth.Authenticator,
	store resource.Store,
	logger *slog.Logger,
	m *metrics.Metrics,
) *Engine {
	return &Engine{
		parser:   protocol.NewParser(cfg.Resources.RootPage),
		resolver: res,
		auth:     authn,
		store:    store,
		mimes:    cfg.Resources.MIMETable(),
		pages: Pages{
			Root:     cfg.Resources.RootPage,
			Auth:     cfg.Resources.AuthPage,
			NotFound: cfg.Resources.NotFoundPage,
		},
		realm:       cfg.Auth.Realm,
		dropMissing: cfg.Server.MissingResource == config.MissingDrop,
		logger:      logger.With("component", "engine"),
		metrics:     m,
	}
}

// Handle runs one request cycle. A nil reply with a nil error means the
// connection is closed without a response (empty buffer, or a missing
// resource under the drop policy). Any error is terminal for the connection.
func (e *Engine) Handle(buf []byte) ([]byte, error) {
	if len(buf) == 0 {
		e.dropped(metrics.DropEmpty)
		return nil, nil
	}
	if err := protocol.Decode(buf); err != nil {
		e.dropped(metrics.DropError)
		return nil, err
	}
	req, err := e.parser.ParseBuffer(buf)
	if err != nil {
		e.dropped(metrics.DropMalformed)
		return nil, err
	}

	start := time.Now()
	e.logger.Info("recv", "headers", protocol.FlattenHeaders(req.RawHeaders))

	target := e.resolver.Resolve(req)
	resp := e.respond(req, target)
	if resp == nil {
		e.logger.Info("dropping connection", "path", req.Path, "reason", "missing resource")
		e.dropped(metrics.DropMissing)
		return nil, nil
	}

	head, body := protocol.Serialize(resp)
	e.logger.Info("sent", "headers", protocol.FlattenHeaders(string(head)))

	if e.metrics != nil {
		method := metrics.NormalizeMethod(req.Method)
		e.metrics.RequestsTotal.WithLabelValues(method, strconv.Itoa(resp.StatusCode), target.Kind.String()).Inc()
		e.metrics.RequestDuration.WithLabelValues(method, target.Kind.String()).Observe(time.Since(start).Seconds())
	}

	return protocol.Join(head, body), nil
}

func (e *Engine) respond(req *model.Request, target model.Target) *model.Response {
	if target.Kind == model.TargetAction {
		return e.invoke(target)
	}

	// Basic guards every request; cookie mode answers unknown names before auth.
	guarded := target.Kind == model.TargetStatic || e.auth.Scheme() == auth.SchemeBasic
	if guarded && !e.auth.Authenticate(req) {
		return e.unauthorized()
	}
	if target.Kind != model.TargetStatic {
		return e.missing()
	}

	data, err := e.store.Read(target.Path)
	if err != nil {
		e.logger.Debug("read resource", "path", target.Path, "err", err)
		return e.missing()
	}
	resp := model.NewResponse(http.StatusOK)
	e.attach(resp, target.Path, data)
	return resp
}

// invoke runs an action. Actions are reachable without prior authentication;
// a rejected action answers like a failed authentication.
func (e *Engine) invoke(target model.Target) *model.Response {
	res := target.Action(target.Params)
	if !res.Success {
		e.logger.Info("action rejected", "action", target.ActionName)
		return e.unauthorized()
	}

	resp := model.NewResponse(http.StatusOK)
	keys := make([]string, 0, len(res.Directives))
	for k := range res.Directives {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		for _, v := range res.Directives[k] {
			resp.AddHeader(k, v)
		}
	}
	e.attachPage(resp, e.pages.Root)
	return resp
}

func (e *Engine) unauthorized() *model.Response {
	resp := model.NewResponse(http.StatusUnauthorized)
	switch e.auth.Scheme() {
	case auth.SchemeBasic:
		resp.AddHeader(model.HeaderWWWAuthenticate, `Basic realm="`+e.realm+`"`)
	case auth.SchemeCookie:
		e.attachPage(resp, e.pages.Auth)
	}
	return resp
}

func (e *Engine) missing() *model.Response {
	if e.dropMissing {
		return nil
	}
	resp := model.NewResponse(http.StatusNotFound)
	e.attachPage(resp, e.pages.NotFound)
	return resp
}

// attachPage sets a named page as content; a page absent from the store
// leaves the response without content.
func (e *Engine) attachPage(resp *model.Response, name string) {
	data, err := e.store.Read(name)
	if err != nil {
		e.logger.Debug("page unavailable", "page", name, "err", err)
		return
	}
	e.attach(resp, name, data)
}

func (e *Engine) attach(resp *model.Response, name string, data []byte) {
	contentType, _ := e.mimes.Lookup(name)
	resp.SetContent(data, contentType)
}

func (e *Engine) dropped(reason string) {
	if e.metrics != nil {
		e.metrics.DroppedTotal.WithLabelValues(reason).Inc()
	}
}
