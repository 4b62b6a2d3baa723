package spreadsheet

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // local/dev posture
	},
}

// rpcRequest is the wire shape of the Edit RPC: one JSON object per
// websocket text message, dispatched by Op.
type rpcRequest struct {
	Op       string          `json:"op"`
	SheetID  int64           `json:"sheet_id"`
	Row      int             `json:"row"`
	Col      int             `json:"col"`
	Value    string          `json:"value"`
	Requests []UpdateRequest `json:"requests,omitempty"`
}

type rpcError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// rpcResponse is the reply to a single rpcRequest, and also the envelope
// used for unsolicited "cell_changed" pushes.
type rpcResponse struct {
	Op      string     `json:"op"`
	Cell    *CellView  `json:"cell,omitempty"`
	Cells   []CellView `json:"cells,omitempty"`
	Cleared bool       `json:"cleared,omitempty"`
	Error   *rpcError  `json:"error,omitempty"`
}

// Server is the Edit RPC transport: one coordinator, one notifier, and
// any number of websocket clients, each of which also receives every
// CellChanged event as an unsolicited "cell_changed" push.
type Server struct {
	workbooks   WorkbookStore
	cells       CellStore
	coordinator *Coordinator
	notifier    *Notifier

	mu      sync.Mutex
	clients map[*websocket.Conn]bool
}

// NewServer wires the Edit RPC transport around an already-constructed
// store/coordinator/notifier triple.
func NewServer(workbooks WorkbookStore, cells CellStore, coordinator *Coordinator, notifier *Notifier) *Server {
	return &Server{
		workbooks:   workbooks,
		cells:       cells,
		coordinator: coordinator,
		notifier:    notifier,
		clients:     make(map[*websocket.Conn]bool),
	}
}

// HandleWebSocket upgrades the connection, registers it for CellChanged
// broadcast, and services RPC requests until the client disconnects.
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("upgrade error:", err)
		return
	}

	s.mu.Lock()
	s.clients[conn] = true
	s.mu.Unlock()

	events := s.notifier.Subscribe(64)
	done := make(chan struct{})
	go s.pushEvents(conn, events, done)

	defer func() {
		close(done)
		s.mu.Lock()
		delete(s.clients, conn)
		s.mu.Unlock()
		_ = conn.Close()
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			break
		}
		var req rpcRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			s.writeTo(conn, rpcResponse{Op: "ERROR", Error: &rpcError{Code: "bad-request", Message: err.Error()}})
			continue
		}
		s.writeTo(conn, s.dispatch(r.Context(), req))
	}
}

// pushEvents forwards every CellChanged this connection's subscription
// receives as a "cell_changed" message, until done fires.
func (s *Server) pushEvents(conn *websocket.Conn, events <-chan CellChanged, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case ev := <-events:
			s.mu.Lock()
			err := conn.WriteJSON(struct {
				Op    string      `json:"op"`
				Event CellChanged `json:"event"`
			}{Op: "cell_changed", Event: ev})
			s.mu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

func (s *Server) writeTo(conn *websocket.Conn, resp rpcResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := conn.WriteJSON(resp); err != nil {
		log.Printf("write failed: %v", err)
	}
}

// dispatch implements the four logical Edit RPC operations, mapping
// every CoreError through errorResponse's error-mapping table.
func (s *Server) dispatch(ctx context.Context, req rpcRequest) rpcResponse {
	sheet, err := s.workbooks.GetSheet(ctx, req.SheetID)
	if err != nil {
		return errorResponse(req.Op, err)
	}

	switch req.Op {
	case "UPDATE_CELL":
		view, err := s.coordinator.Update(ctx, sheet, UpdateRequest{Row: req.Row, Col: req.Col, Value: req.Value})
		if err != nil {
			return errorResponse(req.Op, err)
		}
		if view == nil {
			return rpcResponse{Op: req.Op, Cleared: true}
		}
		return rpcResponse{Op: req.Op, Cell: view}

	case "BATCH_UPDATE":
		views := s.coordinator.BatchUpdate(ctx, sheet, req.Requests)
		return rpcResponse{Op: req.Op, Cells: views}

	case "GET_CELL":
		addr := Address{Row: req.Row, Col: req.Col}
		cell, err := s.cells.Get(ctx, sheet.ID, addr)
		if err != nil {
			return errorResponse(req.Op, err)
		}
		if cell == nil {
			return errorResponse(req.Op, &CoreError{Kind: ErrNotFound, Message: "cell not found", Addr: addr.String()})
		}
		view := toView(*cell)
		return rpcResponse{Op: req.Op, Cell: &view}

	case "LIST_CELLS":
		cells, err := s.cells.List(ctx, sheet.ID)
		if err != nil {
			return errorResponse(req.Op, err)
		}
		views := make([]CellView, 0, len(cells))
		for _, c := range cells {
			views = append(views, toView(c))
		}
		return rpcResponse{Op: req.Op, Cells: views}

	default:
		return errorResponse(req.Op, newError(ErrParse, "unknown op %q", req.Op))
	}
}

// errorResponse maps a CoreError to the external error vocabulary; any
// other error is reported as bad-request without leaking internals.
func errorResponse(op string, err error) rpcResponse {
	if ce, ok := err.(*CoreError); ok {
		return rpcResponse{Op: op, Error: &rpcError{Code: ce.externalCode(), Message: ce.Error()}}
	}
	return rpcResponse{Op: op, Error: &rpcError{Code: "bad-request", Message: err.Error()}}
}

// Start mounts the Edit RPC endpoint and serves addr until it fails.
func (s *Server) Start(addr string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.HandleWebSocket)
	log.Printf("sheetcore listening at http://%s", addr)
	return http.ListenAndServe(addr, mux)
}
