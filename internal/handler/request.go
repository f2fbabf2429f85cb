package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"QueryFilter/internal/auth"
	"QueryFilter/internal/db"
	"QueryFilter/internal/logger"
	"QueryFilter/internal/metrics"
	"QueryFilter/internal/model"
	"QueryFilter/internal/parser"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"github.com/tidwall/gjson"
)

const maxBodyBytes = 1 << 20

// Service holds what the handlers need to run parsed queries. DB may be nil,
// in which case only /api/parse is served.
type Service struct {
	DB              db.Querier
	Cache           redis.Cmdable
	CountTTL        time.Duration
	PermissionClaim string
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

var errModelRequired = errors.New("model is required")

// readQuery достаёт имя модели и запрос.
//
//	GET  /api/parse?model=orders&shop_id=7&status_in=A,B
//	POST /api/parse {"model": "orders", "query": {"shop_id": 7}}
//
// Порядок ключей сохраняется в обоих случаях.
func readQuery(r *http.Request) (string, parser.Query, error) {
	switch r.Method {
	case http.MethodGet:
		raw, err := parser.ParseRawQuery(r.URL.RawQuery)
		if err != nil {
			return "", nil, err
		}
		var (
			name string
			q    = make(parser.Query, 0, len(raw))
		)
		for _, p := range raw {
			if p.Key == "model" {
				if s, ok := p.Value.(string); ok && name == "" {
					name = s
				}
				continue
			}
			q = append(q, p)
		}
		if name == "" {
			return "", nil, errModelRequired
		}
		return name, q, nil

	case http.MethodPost:
		body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
		if err != nil {
			return "", nil, fmt.Errorf("failed to read body: %w", err)
		}
		if !gjson.ValidBytes(body) {
			return "", nil, errors.New("invalid JSON body")
		}
		doc := gjson.ParseBytes(body)
		name := doc.Get("model").String()
		if name == "" {
			return "", nil, errModelRequired
		}
		q, err := parser.QueryFromGJSON(doc.Get("query"))
		if err != nil {
			return "", nil, err
		}
		return name, q, nil
	}
	return "", nil, fmt.Errorf("method %s not allowed", r.Method)
}

// parse runs the shared front half of every endpoint. When it returns false
// the response has already been written.
func (s *Service) parse(w http.ResponseWriter, r *http.Request, endpoint string) (*model.Model, *parser.Result, bool) {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		logger.Warn("method_not_allowed", map[string]any{
			"endpoint": endpoint,
			"method":   r.Method,
		})
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only GET and POST allowed")
		return nil, nil, false
	}

	name, q, err := readQuery(r)
	if err != nil {
		logger.Warn("invalid_request", map[string]any{
			"endpoint": endpoint,
			"error":    err.Error(),
		})
		writeError(w, http.StatusBadRequest, "ERR_BAD_REQUEST", err.Error())
		return nil, nil, false
	}

	m, ok := model.Get(name)
	if !ok {
		writeError(w, http.StatusNotFound, "ERR_UNKNOWN_MODEL", fmt.Sprintf("Model %s not found", name))
		return nil, nil, false
	}

	var permission map[string][]any
	if claims, ok := auth.ClaimsFromContext(r.Context()); ok {
		permission, err = auth.PermissionFromClaims(claims, s.permissionClaim())
		if err != nil {
			writeError(w, http.StatusForbidden, "ERR_FORBIDDEN", err.Error())
			return nil, nil, false
		}
	}

	res := m.Parser().Parse(q, parser.WithPermission(permission))
	metrics.ObserveParse(m.Name, res)
	if !res.OK() {
		logger.Warn("parse_rejected", map[string]any{
			"endpoint": endpoint,
			"model":    m.Name,
			"codes":    res.Errors.Codes(),
		})
		writeJSON(w, http.StatusBadRequest, res.Err(m.Name))
		return nil, nil, false
	}
	return m, res, true
}

func (s *Service) permissionClaim() string {
	if s.PermissionClaim == "" {
		return "permission"
	}
	return s.PermissionClaim
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("write_response_failed", map[string]any{"error": err.Error()})
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorBody{Code: code, Message: message})
}
