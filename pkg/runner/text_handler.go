package runner

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/lattice/internal/presentation/tui"
	"github.com/aretw0/lattice/pkg/domain"
)

// TextHandler implements the line based interactive interface.
//
// A line is either a command (":vector", ":reset", ":help"), "exit"/"quit",
// or a message: "KIND key=value ..." or "KIND {json context}".
type TextHandler struct {
	Reader   *bufio.Reader
	Writer   io.Writer
	Prompt   string
	Renderer func(string) (string, error)

	printer   *tui.ChangePrinter
	inputChan chan inputResult
	startOnce sync.Once
}

type inputResult struct {
	text string
	err  error
}

// TextHandlerOption defines configuration for TextHandler.
type TextHandlerOption func(*TextHandler)

// WithTextHandlerRenderer configures the markdown renderer used for help and system output.
func WithTextHandlerRenderer(renderer func(string) (string, error)) TextHandlerOption {
	return func(h *TextHandler) {
		h.Renderer = renderer
	}
}

// WithPrompt replaces the default "> " prompt. An empty prompt disables it.
func WithPrompt(prompt string) TextHandlerOption {
	return func(h *TextHandler) {
		h.Prompt = prompt
	}
}

// NewTextHandler creates a handler for standard text IO.
func NewTextHandler(r io.Reader, w io.Writer, opts ...TextHandlerOption) *TextHandler {
	if r == nil {
		r = os.Stdin
	}
	if w == nil {
		w = os.Stdout
	}
	h := &TextHandler{
		Reader:  bufio.NewReader(r),
		Writer:  w,
		Prompt:  "> ",
		printer: tui.NewChangePrinter(w),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *TextHandler) initPump() {
	h.startOnce.Do(func() {
		h.inputChan = make(chan inputResult)
		go h.pump()
	})
}

func (h *TextHandler) pump() {
	for {
		text, err := h.Reader.ReadString('\n')

		if text != "" {
			h.inputChan <- inputResult{text: text}
		}

		if err != nil {
			if err == io.EOF {
				close(h.inputChan)
				return
			}
			h.inputChan <- inputResult{err: err}
			// Backoff for non-fatal errors to prevent CPU spikes on persistent failure
			time.Sleep(50 * time.Millisecond)
		}
	}
}

func (h *TextHandler) Input(ctx context.Context) (Request, error) {
	h.initPump()

	for {
		select {
		case <-ctx.Done():
			return Request{}, ctx.Err()
		default:
			if h.Prompt != "" {
				fmt.Fprint(h.Writer, h.Prompt)
			}
		}

		select {
		case <-ctx.Done():
			return Request{}, ctx.Err()
		case res, ok := <-h.inputChan:
			if !ok {
				return Request{}, io.EOF
			}
			if res.err != nil {
				return Request{}, res.err
			}

			clean, err := SanitizeInput(strings.TrimSpace(res.text))
			if err != nil {
				fmt.Fprintf(h.Writer, "Error: %v. Please try again.\n", err)
				continue
			}
			if clean == "" {
				continue
			}

			req, err := ParseLine(clean)
			if errors.Is(err, io.EOF) {
				return Request{}, err
			}
			if err != nil {
				fmt.Fprintf(h.Writer, "Error: %v. Please try again.\n", err)
				continue
			}
			return req, nil
		}
	}
}

func (h *TextHandler) Output(_ context.Context, res Result) error {
	if res.Err != nil {
		fmt.Fprintf(h.Writer, "Error: %v\n", res.Err)
		// An epsilon cycle still commits; show where the group ended up.
		if !res.ChangeSet.IsEmpty() {
			h.printer.Print(res.ChangeSet)
		}
		return nil
	}
	if res.Command == CommandVector {
		h.printer.PrintVector(res.Vector)
		return nil
	}
	h.printer.Print(res.ChangeSet)
	return nil
}

func (h *TextHandler) SystemOutput(_ context.Context, msg string) error {
	out := msg
	if h.Renderer != nil {
		if rendered, err := h.Renderer(msg); err == nil {
			out = rendered
		}
	}
	fmt.Fprintf(h.Writer, "\n%s\n", strings.TrimSpace(out))
	return nil
}

// ParseLine turns one line of text input into a Request.
func ParseLine(line string) (Request, error) {
	line = strings.TrimSpace(line)
	switch strings.ToLower(line) {
	case "exit", "quit":
		return Request{}, io.EOF
	}
	if cmd, ok := strings.CutPrefix(line, ":"); ok {
		switch cmd {
		case CommandVector, CommandReset, CommandHelp:
			return Request{Command: cmd}, nil
		}
		return Request{}, fmt.Errorf("unknown command %q", line)
	}

	kind, rest, _ := strings.Cut(line, " ")
	msg := domain.Message{Kind: kind}
	rest = strings.TrimSpace(rest)
	if rest == "" {
		return Request{Message: msg}, nil
	}

	if strings.HasPrefix(rest, "{") {
		if err := json.Unmarshal([]byte(rest), &msg.Context); err != nil {
			return Request{}, fmt.Errorf("invalid context: %w", err)
		}
		return Request{Message: msg}, nil
	}

	msg.Context = make(map[string]any)
	for _, field := range strings.Fields(rest) {
		key, value, ok := strings.Cut(field, "=")
		if !ok || key == "" {
			return Request{}, fmt.Errorf("expected key=value, got %q", field)
		}
		msg.Context[key] = parseValue(value)
	}
	return Request{Message: msg}, nil
}

func parseValue(s string) any {
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return int(i)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}
