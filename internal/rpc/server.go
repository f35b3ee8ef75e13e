// Package rpc serves the mapper over JSON-RPC 2.0, one request per line.
package rpc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/jaxbulsara/NeoAlchemy/internal/graph"
	"github.com/jaxbulsara/NeoAlchemy/internal/mapper"
	"github.com/jaxbulsara/NeoAlchemy/ogm"
)

// Response codes and server identity.
const (
	CodeParse             = -32700
	CodeMethodNotFound    = -32601
	CodeInvalidParams     = -32602
	CodeOther             = -32000
	CodeImmutable         = -32001
	CodeConfiguration     = -32002
	CodeTypeRestriction   = -32003
	CodeCardinality       = -32004
	ServerName            = "neoalchemy"
	ProtocolVersion       = "1.0"
	maxRequestBufferBytes = 4 << 20
)

// Server answers requests read from in and writes responses to out.
type Server struct {
	mapper  *mapper.Mapper
	scanner *bufio.Scanner
	out     io.Writer
	mu      sync.Mutex
	logger  *slog.Logger
	version string
}

// Stats describes the store behind the server.
type Stats struct {
	Nodes        int    `json:"nodes"`
	Edges        int    `json:"edges"`
	DatabaseSize string `json:"database_size"`
}

// NewServer returns a server over m.
func NewServer(m *mapper.Mapper, in io.Reader, out io.Writer, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), maxRequestBufferBytes)
	return &Server{
		mapper:  m,
		scanner: scanner,
		out:     out,
		logger:  logger,
		version: "dev",
	}
}

// SetVersion sets the version reported by initialize.
func (s *Server) SetVersion(v string) { s.version = v }

// Start reads requests until in is exhausted or ctx is done.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("rpc server ready")

	for s.scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := s.scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var request Request
		if err := json.Unmarshal(line, &request); err != nil {
			s.sendError(nil, CodeParse, "Parse error", err.Error())
			continue
		}

		s.handleRequest(ctx, &request)
	}

	return s.scanner.Err()
}

// Stats returns node and edge counts and the database size.
func (s *Server) Stats(ctx context.Context) Stats {
	store := s.mapper.Store()
	nodes, edges, _ := store.Count(ctx)
	size, _ := store.Size()
	return Stats{Nodes: nodes, Edges: edges, DatabaseSize: size}
}

func (s *Server) handleRequest(ctx context.Context, req *Request) {
	var (
		result any
		err    error
	)

	switch req.Method {
	case "initialize":
		result = s.initialize(ctx)
	case "schema/describe":
		result = map[string]any{"classes": s.mapper.Describe()}
	case "nodes/create":
		result, err = s.nodesCreate(ctx, req.Params)
	case "nodes/get":
		result, err = s.nodesGet(ctx, req.Params)
	case "relations/create":
		result, err = s.relationsEdge(ctx, req.Params, s.mapper.Relate)
	case "relations/merge":
		result, err = s.relationsEdge(ctx, req.Params, s.mapper.Merge)
	case "relations/delete":
		result, err = s.relationsDelete(ctx, req.Params)
	case "relations/match":
		result, err = s.relationsMatch(ctx, req.Params)
	case "fields/get":
		result, err = s.fieldsGet(ctx, req.Params)
	case "fields/set":
		result, err = s.fieldsSet(ctx, req.Params)
	default:
		s.sendError(req.ID, CodeMethodNotFound, "Method not found", req.Method)
		return
	}

	if err != nil {
		s.logger.Debug("request failed", slog.String("method", req.Method), slog.String("error", err.Error()))
		code, msg := classify(err)
		s.sendError(req.ID, code, msg, err.Error())
		return
	}
	s.sendResult(req.ID, result)
}

func (s *Server) initialize(ctx context.Context) map[string]any {
	return map[string]any{
		"protocolVersion": ProtocolVersion,
		"serverInfo": map[string]any{
			"name":    ServerName,
			"version": s.version,
		},
		"stats": s.Stats(ctx),
	}
}

type nodeParams struct {
	ID         string         `json:"id"`
	Class      string         `json:"class"`
	Properties map[string]any `json:"properties"`
}

func (s *Server) nodesCreate(ctx context.Context, raw json.RawMessage) (any, error) {
	var p nodeParams
	if err := decode(raw, &p); err != nil {
		return nil, err
	}
	if p.Class == "" {
		return nil, paramError("class is required")
	}
	n, err := s.mapper.CreateNode(ctx, p.Class, p.Properties)
	if err != nil {
		return nil, err
	}
	return n.Record(), nil
}

func (s *Server) nodesGet(ctx context.Context, raw json.RawMessage) (any, error) {
	var p nodeParams
	if err := decode(raw, &p); err != nil {
		return nil, err
	}
	if p.ID == "" {
		return nil, paramError("id is required")
	}
	n, _, err := s.mapper.Node(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	return n.Record(), nil
}

type relationParams struct {
	Node       string         `json:"node"`
	Field      string         `json:"field"`
	Related    string         `json:"related"`
	Labels     []string       `json:"labels"`
	Properties map[string]any `json:"properties"`
	Value      any            `json:"value"`
	Delete     bool           `json:"delete"`
}

func (p relationParams) require(related bool) error {
	if p.Node == "" {
		return paramError("node is required")
	}
	if p.Field == "" {
		return paramError("field is required")
	}
	if related && p.Related == "" {
		return paramError("related is required")
	}
	return nil
}

func (s *Server) relationsEdge(ctx context.Context, raw json.RawMessage, op func(context.Context, string, string, string) (ogm.Edge, error)) (any, error) {
	var p relationParams
	if err := decode(raw, &p); err != nil {
		return nil, err
	}
	if err := p.require(true); err != nil {
		return nil, err
	}
	return op(ctx, p.Node, p.Field, p.Related)
}

func (s *Server) relationsDelete(ctx context.Context, raw json.RawMessage) (any, error) {
	var p relationParams
	if err := decode(raw, &p); err != nil {
		return nil, err
	}
	if err := p.require(true); err != nil {
		return nil, err
	}
	if err := s.mapper.Unrelate(ctx, p.Node, p.Field, p.Related); err != nil {
		return nil, err
	}
	return map[string]any{"deleted": true}, nil
}

func (s *Server) relationsMatch(ctx context.Context, raw json.RawMessage) (any, error) {
	var p relationParams
	if err := decode(raw, &p); err != nil {
		return nil, err
	}
	if err := p.require(false); err != nil {
		return nil, err
	}
	nodes, err := s.mapper.Match(ctx, p.Node, p.Field, p.Labels, p.Properties)
	if err != nil {
		return nil, err
	}
	return map[string]any{"count": len(nodes), "nodes": graph.Records(nodes)}, nil
}

func (s *Server) fieldsGet(ctx context.Context, raw json.RawMessage) (any, error) {
	var p relationParams
	if err := decode(raw, &p); err != nil {
		return nil, err
	}
	if err := p.require(false); err != nil {
		return nil, err
	}
	v, err := s.mapper.Get(ctx, p.Node, p.Field)
	if err != nil {
		return nil, err
	}
	switch v := v.(type) {
	case []*graph.Node:
		return map[string]any{"nodes": graph.Records(v)}, nil
	case *graph.Node:
		return map[string]any{"node": v.Record()}, nil
	}
	return map[string]any{"value": v}, nil
}

func (s *Server) fieldsSet(ctx context.Context, raw json.RawMessage) (any, error) {
	var p relationParams
	err := decode(raw, &p)
	if err == nil {
		err = p.require(false)
	}
	if err != nil {
		return nil, err
	}
	if p.Delete {
		err = s.mapper.Delete(ctx, p.Node, p.Field)
	} else {
		err = s.mapper.Set(ctx, p.Node, p.Field, p.Value)
	}
	if err != nil {
		return nil, err
	}
	return map[string]any{"ok": true}, nil
}


var errInvalidParams = errors.New("invalid params")

func paramError(msg string) error {
	return fmt.Errorf("%w: %s", errInvalidParams, msg)
}

func decode(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %v", errInvalidParams, err)
	}
	return nil
}

// classify maps an error to a response code and message.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, errInvalidParams):
		return CodeInvalidParams, "Invalid params"
	case ogm.IsImmutable(err):
		return CodeImmutable, "Immutable field"
	case ogm.IsConfiguration(err):
		return CodeConfiguration, "Configuration error"
	case ogm.IsTypeRestriction(err):
		return CodeTypeRestriction, "Type restriction"
	case ogm.IsCardinality(err):
		return CodeCardinality, "Cardinality error"
	}
	return CodeOther, "Server error"
}

// Request is a JSON-RPC request.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response is a JSON-RPC response.
type Response struct {
	JSONRPC string    `json:"jsonrpc"`
	ID      any       `json:"id"`
	Result  any       `json:"result,omitempty"`
	Error   *RPCError `json:"error,omitempty"`
}

// RPCError is the error member of a response.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    string `json:"data,omitempty"`
}

func (s *Server) sendResult(id any, result any) {
	s.send(Response{JSONRPC: "2.0", ID: id, Result: result})
}

func (s *Server) sendError(id any, code int, message, data string) {
	s.send(Response{
		JSONRPC: "2.0",
		ID:      id,
		Error: &RPCError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	})
}

func (s *Server) send(resp Response) {
	data, _ := json.Marshal(resp)
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintln(s.out, string(data))
}
