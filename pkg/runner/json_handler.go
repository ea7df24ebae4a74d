package runner

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aretw0/lattice/pkg/domain"
)

// JSONHandler implements the IOHandler interface for newline-delimited JSON.
//
// Every input line is either a message {"kind": "OPEN", "context": {...}} or a
// command {"command": "vector"}. Every result is written as one JSON line.
type JSONHandler struct {
	Reader  *bufio.Reader
	Writer  io.Writer
	Encoder *json.Encoder
}

// jsonRequest is one input line.
type jsonRequest struct {
	Kind    *string        `json:"kind"`
	Context map[string]any `json:"context,omitempty"`
	Command string         `json:"command,omitempty"`
}

// JSONResult is one output line.
type JSONResult struct {
	Kind    string        `json:"kind,omitempty"`
	Command string        `json:"command,omitempty"`
	Changed []string      `json:"changed,omitempty"`
	Prior   domain.Vector `json:"prior,omitempty"`
	Next    domain.Vector `json:"next,omitempty"`
	Vector  domain.Vector `json:"vector,omitempty"`
	Error   string        `json:"error,omitempty"`
	System  string        `json:"system,omitempty"`
}

// NewJSONHandler creates a handler for JSON IO.
func NewJSONHandler(r io.Reader, w io.Writer) *JSONHandler {
	if r == nil {
		r = os.Stdin
	}
	if w == nil {
		w = os.Stdout
	}
	return &JSONHandler{
		Reader:  bufio.NewReader(r),
		Writer:  w,
		Encoder: json.NewEncoder(w),
	}
}

func (h *JSONHandler) Input(ctx context.Context) (Request, error) {
	for {
		if err := ctx.Err(); err != nil {
			return Request{}, err
		}
		text, err := h.Reader.ReadString('\n')
		text = strings.TrimSpace(text)
		if text == "" {
			if err != nil {
				return Request{}, err
			}
			continue
		}

		req, perr := decodeRequest(text)
		if perr != nil {
			if werr := h.Encoder.Encode(JSONResult{Error: perr.Error()}); werr != nil {
				return Request{}, werr
			}
			if err != nil {
				return Request{}, err
			}
			continue
		}
		return req, nil
	}
}

func decodeRequest(line string) (Request, error) {
	var in jsonRequest
	if err := json.Unmarshal([]byte(line), &in); err != nil {
		return Request{}, fmt.Errorf("invalid request: %w", err)
	}
	if in.Command != "" {
		switch in.Command {
		case CommandVector, CommandReset, CommandHelp:
			return Request{Command: in.Command}, nil
		case "exit", "quit":
			return Request{}, io.EOF
		}
		return Request{}, fmt.Errorf("unknown command %q", in.Command)
	}
	if in.Kind == nil {
		return Request{}, fmt.Errorf("request needs a kind or a command")
	}
	return Request{Message: domain.Message{Kind: *in.Kind, Context: in.Context}}, nil
}

func (h *JSONHandler) Output(_ context.Context, res Result) error {
	out := JSONResult{
		Kind:    res.Kind,
		Command: res.Command,
		Vector:  res.Vector,
	}
	if res.Command == "" || res.Command == CommandReset {
		out.Changed = res.ChangeSet.Changed
		out.Prior = res.ChangeSet.Prior
		out.Next = res.ChangeSet.Next
	}
	if res.Err != nil {
		out.Error = res.Err.Error()
	}
	return h.Encoder.Encode(out)
}

func (h *JSONHandler) SystemOutput(_ context.Context, msg string) error {
	return h.Encoder.Encode(JSONResult{System: msg})
}
