// Command sheetctl is an interactive terminal client for the Edit RPC
// server: one goroutine reads the server connection, another reads
// stdin, exchanging line-delimited RPC requests over a websocket.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/gorilla/websocket"
	"golang.org/x/term"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("sheetctl", flag.ContinueOnError)
	addr := fs.String("addr", "ws://127.0.0.1:8080/ws", "websocket URL of the sheetcore server")
	sheetID := fs.Int64("sheet", 1, "sheet id to operate on")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	conn, _, err := websocket.DefaultDialer.Dial(*addr, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sheetctl: connect: %v\n", err)
		return 1
	}
	defer conn.Close()

	done := make(chan struct{})
	go readLoop(conn, done)

	interactive := term.IsTerminal(int(os.Stdin.Fd()))
	if interactive {
		fmt.Println("sheetctl connected. Commands: set <addr> <value> | get <addr> | list | quit")
	}

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" {
			break
		}
		req, err := parseCommand(*sheetID, line)
		if err != nil {
			fmt.Fprintf(os.Stderr, "sheetctl: %v\n", err)
			continue
		}
		if err := conn.WriteJSON(req); err != nil {
			fmt.Fprintf(os.Stderr, "sheetctl: send: %v\n", err)
			break
		}
	}

	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	<-done
	return 0
}

// readLoop prints every message the server sends — RPC replies and
// unsolicited cell_changed pushes alike — until the connection closes.
func readLoop(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var pretty map[string]interface{}
		if json.Unmarshal(msg, &pretty) == nil {
			out, _ := json.MarshalIndent(pretty, "", "  ")
			fmt.Println(string(out))
		} else {
			fmt.Println(string(msg))
		}
	}
}

type cellRequest struct {
	Op      string `json:"op"`
	SheetID int64  `json:"sheet_id"`
	Row     int    `json:"row"`
	Col     int    `json:"col"`
	Value   string `json:"value,omitempty"`
}

// parseCommand turns a line like "set A1 =SUM(A1:A3)" into the rpcRequest
// JSON the server's Edit RPC dispatch understands.
func parseCommand(sheetID int64, line string) (cellRequest, error) {
	fields := strings.SplitN(line, " ", 3)
	switch strings.ToLower(fields[0]) {
	case "set":
		if len(fields) < 3 {
			return cellRequest{}, fmt.Errorf("usage: set <addr> <value>")
		}
		row, col, err := decodeAddr(fields[1])
		if err != nil {
			return cellRequest{}, err
		}
		return cellRequest{Op: "UPDATE_CELL", SheetID: sheetID, Row: row, Col: col, Value: fields[2]}, nil
	case "get":
		if len(fields) < 2 {
			return cellRequest{}, fmt.Errorf("usage: get <addr>")
		}
		row, col, err := decodeAddr(fields[1])
		if err != nil {
			return cellRequest{}, err
		}
		return cellRequest{Op: "GET_CELL", SheetID: sheetID, Row: row, Col: col}, nil
	case "list":
		return cellRequest{Op: "LIST_CELLS", SheetID: sheetID}, nil
	default:
		return cellRequest{}, fmt.Errorf("unknown command %q", fields[0])
	}
}

// decodeAddr parses A1-notation without importing the spreadsheet
// package, keeping this client independent of the server's packages.
func decodeAddr(s string) (row, col int, err error) {
	i := 0
	for i < len(s) && s[i] >= 'A' && s[i] <= 'Z' {
		i++
	}
	if i == 0 || i == len(s) {
		return 0, 0, fmt.Errorf("invalid address %q", s)
	}
	n := 0
	for _, ch := range s[:i] {
		n = n*26 + int(ch-'A') + 1
	}
	row, err = strconv.Atoi(s[i:])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid address %q", s)
	}
	return row, n - 1, nil
}
