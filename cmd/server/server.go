package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/ajholden/DatasetDB"
	"github.com/ajholden/DatasetDB/core"
	"github.com/ajholden/DatasetDB/db"
	"github.com/ajholden/DatasetDB/lineage"
)

// Server is a TCP server that exposes the DatasetDB repository engine.
type Server struct {
	listener   net.Listener
	instance   *DatasetDB.Instance
	identity   core.Identity
	data       core.DataEngine
	authConfig *AuthConfig
	logger     *zap.Logger
	mu         sync.Mutex
	done       chan struct{}
	wg         sync.WaitGroup
}

// NewServer creates a new repository server with the given DatasetDB instance.
func NewServer(instance *DatasetDB.Instance, identity core.Identity, data core.DataEngine, logger *zap.Logger) *Server {
	return &Server{
		instance: instance,
		identity: identity,
		data:     data,
		logger:   logger,
		done:     make(chan struct{}),
	}
}

// SetAuthConfig enables authentication on the server.
func (s *Server) SetAuthConfig(config *AuthConfig) {
	s.authConfig = config
}

// Start begins listening for connections on the specified address.
func (s *Server) Start(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	s.listener = listener

	s.logger.Info("server listening", zap.String("addr", addr))

	go s.acceptLoop()
	return nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop() error {
	close(s.done)
	if s.listener != nil {
		s.listener.Close()
	}
	s.wg.Wait()
	return nil
}

// Addr returns the server's listening address.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.done:
				return
			default:
				s.logger.Warn("accept error", zap.Error(err))
				continue
			}
		}

		s.wg.Add(1)
		go s.handleConnection(conn)
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	remote := conn.RemoteAddr().String()
	s.logger.Info("client connected", zap.String("remote", remote))

	state := &ConnectionState{}
	reader := bufio.NewReader(conn)

	for {
		select {
		case <-s.done:
			return
		default:
		}

		// One request per line.
		line, err := reader.ReadString('\n')
		if err != nil {
			if err != io.EOF {
				s.logger.Warn("read error", zap.String("remote", remote), zap.Error(err))
			}
			return
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.ToLower(line) == "quit" || strings.ToLower(line) == "exit" {
			s.logger.Info("client disconnected", zap.String("remote", remote))
			return
		}

		var response Response
		if strings.HasPrefix(strings.ToUpper(line), "AUTH ") {
			response = s.handleAuth(line, state)
			if response.Success {
				s.logger.Info("client authenticated",
					zap.String("remote", remote),
					zap.String("name", state.identity.Name))
			}
		} else if s.authConfig != nil && s.authConfig.Enabled && !state.IsAuthenticated() {
			response = Response{Success: false, Error: "authentication required: send AUTH JWT <token>"}
		} else {
			request, err := DecodeRequest([]byte(line))
			if err != nil {
				response = Response{Success: false, Error: fmt.Sprintf("invalid request: %v", err)}
			} else {
				response = s.executeRequest(request, state)
			}
		}

		data, err := EncodeResponse(response)
		if err != nil {
			s.logger.Error("failed to encode response", zap.Error(err))
			continue
		}

		if _, err := conn.Write(data); err != nil {
			s.logger.Warn("write error", zap.String("remote", remote), zap.Error(err))
			return
		}
	}
}

// engineFor returns an engine bound to the connection's identity, falling back
// to the server identity for unauthenticated connections.
func (s *Server) engineFor(state *ConnectionState) *db.Engine {
	identity := s.identity
	if state.Identity() != nil {
		identity = *state.Identity()
	}
	return s.instance.Engine(identity, s.data)
}

func (s *Server) executeRequest(request Request, state *ConnectionState) Response {
	s.mu.Lock()
	defer s.mu.Unlock()

	engine := s.engineFor(state)

	switch request.Op {
	case "create":
		record, err := engine.CreateDataset(db.CreateParams{
			Name:        request.Name,
			DataPointer: request.Pointer,
			Tag:         request.Tag,
			ParentRefs:  request.Parents,
			Description: derefOr(request.Description, ""),
			Author:      request.Author,
		})
		if err != nil {
			return errResponse(err)
		}
		return okResponse("dataset", record)

	case "derive":
		record, err := engine.DeriveDataset(request.Ref, db.CreateParams{
			Name:        request.Name,
			DataPointer: request.Pointer,
			Tag:         request.Tag,
			Description: derefOr(request.Description, ""),
			Author:      request.Author,
		})
		if err != nil {
			return errResponse(err)
		}
		return okResponse("dataset", record)

	case "update":
		record, err := engine.UpdateDataset(request.Ref, request.Pointer, request.Description)
		if err != nil {
			return errResponse(err)
		}
		return okResponse("dataset", record)

	case "delete":
		if err := engine.Delete(request.Ref, request.Force); err != nil {
			return errResponse(err)
		}
		return okResponse("delete", nil)

	case "tag":
		if err := engine.Tag(request.Ref, request.Tag); err != nil {
			return errResponse(err)
		}
		return okResponse("tag", nil)

	case "untag":
		if err := engine.Untag(request.Name, request.Tag); err != nil {
			return errResponse(err)
		}
		return okResponse("untag", nil)

	case "rename":
		record, err := engine.Rename(request.Ref, request.Name)
		if err != nil {
			return errResponse(err)
		}
		return okResponse("dataset", record)

	case "describe":
		if err := engine.Describe(request.Ref, derefOr(request.Description, "")); err != nil {
			return errResponse(err)
		}
		return okResponse("describe", nil)

	case "get":
		record, err := engine.Get(request.Ref)
		if err != nil {
			return errResponse(err)
		}
		return okResponse("dataset", record)

	case "resolve":
		id, err := engine.Resolve(request.Ref)
		if err != nil {
			return errResponse(err)
		}
		return okResponse("id", id)

	case "list":
		records, err := engine.Persistence.ListDatasets(request.NameFilter, request.TagFilter)
		if err != nil {
			return errResponse(err)
		}
		return okResponse("datasets", records)

	case "tags":
		id, err := engine.Resolve(request.Ref)
		if err != nil {
			return errResponse(err)
		}
		labels, err := engine.Persistence.TagsFor(id)
		if err != nil {
			return errResponse(err)
		}
		return okResponse("tags", labels)

	case "history":
		events, err := engine.Persistence.TagHistory(request.Name, request.Tag)
		if err != nil {
			return errResponse(err)
		}
		return okResponse("history", events)

	case "parents":
		result, err := engine.Parents(request.Ref)
		if err != nil {
			return errResponse(err)
		}
		return lineageResponse(result)

	case "children":
		records, err := engine.Children(request.Ref)
		if err != nil {
			return errResponse(err)
		}
		return okResponse("datasets", records)

	case "ancestors":
		result, err := engine.Ancestors(request.Ref)
		if err != nil {
			return errResponse(err)
		}
		return lineageResponse(result)

	case "descendants":
		records, err := engine.Descendants(request.Ref)
		if err != nil {
			return errResponse(err)
		}
		return okResponse("datasets", records)

	case "roots":
		result, err := engine.Roots(request.Ref)
		if err != nil {
			return errResponse(err)
		}
		return lineageResponse(result)

	default:
		return Response{Success: false, Error: fmt.Sprintf("unknown op: %q", request.Op)}
	}
}

func lineageResponse(result lineage.Result) Response {
	lr := LineageResponse{Dangling: result.Dangling}
	for _, version := range result.Versions {
		data, err := json.Marshal(version)
		if err != nil {
			return errResponse(err)
		}
		lr.Versions = append(lr.Versions, data)
	}
	return okResponse("lineage", lr)
}

func derefOr(s *string, fallback string) string {
	if s == nil {
		return fallback
	}
	return *s
}
