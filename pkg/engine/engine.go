// Package engine is the scene console: it evaluates zygomys Lisp scripts in
// a sandbox and turns builtins such as (spawn 1 0 0) and (teleport) into
// calls on the scene.
package engine

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/chazu/tessera/pkg/scene"
	"github.com/go-gl/mathgl/mgl32"
	zygo "github.com/glycerine/zygomys/zygo"
)

// Commands is the part of the scene a script can drive.
type Commands interface {
	Spawn(p mgl32.Vec3) bool
	Teleport() bool
	SetResolution(n, m int) error
	Resolution() scene.Resolution
	SetDistance(d float32) float32
	Distance() float32
	SetWireframe(on bool)
	Wireframe() bool
	Count() int
	Cursor() int
	Placed(i int) (mgl32.Vec3, error)
	SphereRadius() float32
	Lighting() scene.Lighting
	SetLight(l scene.Light) error
}

var _ Commands = (*scene.Controller)(nil)

// errCancelled is returned by builtins of an evaluation that timed out or
// was superseded.
var errCancelled = errors.New("evaluation cancelled")

// EvalError represents a non-fatal error encountered during evaluation,
// such as a parse error or a runtime error in user code.
type EvalError struct {
	Line    int
	Col     int
	Message string
}

func (e EvalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// Action records one scene command issued by a script.
type Action struct {
	Command string `json:"command"`
	Result  string `json:"result"`
}

// Result is the output of a successful evaluation.
type Result struct {
	Actions []Action `json:"actions"`
	// Value is the printed value of the last expression.
	Value string `json:"value"`
}

// Engine wraps the zygomys interpreter. It is safe for concurrent use;
// each call to Evaluate creates a fresh sandboxed environment.
type Engine struct {
	mu         sync.Mutex
	generation uint64
}

// NewEngine creates a new Engine instance.
func NewEngine() *Engine {
	return &Engine{}
}

// run is the state of one evaluation shared by its builtins.
type run struct {
	cmds      Commands
	lk        sync.Locker
	cancelled atomic.Bool
	actions   []Action
}

func (r *run) cancel() { r.cancelled.Store(true) }

func (r *run) record(command, result string) {
	r.actions = append(r.actions, Action{Command: command, Result: result})
}

// Evaluate runs source against cmds. Every builtin that touches cmds holds
// lk (when non-nil) for the duration of the call, so a caller can
// serialize script commands with its own use of the scene. Commands issued
// before a failure stay applied.
//
// Return semantics:
//   - On success: returns result + nil errors + nil error
//   - On parse/eval failure: returns nil result + eval errors + nil error
//   - On fatal failure (timeout, panic, superseded): returns nil + nil + error
func (e *Engine) Evaluate(source string, cmds Commands, lk sync.Locker) (*Result, []EvalError, error) {
	e.mu.Lock()
	e.generation++
	gen := e.generation
	e.mu.Unlock()

	r := &run{cmds: cmds, lk: lk}
	ch := make(chan evalResult, 1)

	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				ch <- evalResult{err: fmt.Errorf("panic during evaluation: %v", rec)}
			}
		}()

		res, evalErrs, err := evaluate(source, r)
		ch <- evalResult{result: res, errors: evalErrs, err: err}
	}()

	res, evalErrs, err := waitWithTimeout(ch, gen, &e.mu, &e.generation, r.cancel)
	if err != nil {
		scene.Logger().Warn("script failed", "err", err)
	}
	return res, evalErrs, err
}

// evaluate performs the actual zygomys evaluation in a fresh sandbox.
func evaluate(source string, r *run) (*Result, []EvalError, error) {
	// Empty source is a valid program that does nothing.
	if strings.TrimSpace(source) == "" {
		return &Result{}, nil, nil
	}

	// Sandbox mode prevents scripts from accessing the filesystem or syscalls.
	env := zygo.NewZlispSandbox()
	defer env.Stop()
	registerBuiltins(env, r)

	err := env.LoadString(preprocessSource(source))
	if err != nil {
		return nil, parseZygomysError(err), nil
	}

	v, err := env.Run()
	if err != nil {
		return nil, parseZygomysError(err), nil
	}

	res := &Result{Actions: r.actions}
	if v != nil {
		res.Value = v.SexpString(nil)
	}
	return res, nil, nil
}

// linePattern matches zygomys error messages that include "Error on line N: ..."
var linePattern = regexp.MustCompile(`(?is)(?:error )?on line (\d+):\s*(.*)`)

// linePatternShort matches simpler "line N: ..." patterns.
var linePatternShort = regexp.MustCompile(`(?is)^line (\d+):\s*(.*)`)

// parseZygomysError converts a zygomys error into one or more EvalError values.
// It attempts to extract line number information from the error message.
// Text around the line marker is kept so builtin error messages survive.
func parseZygomysError(err error) []EvalError {
	msg := err.Error()

	// zygomys formats parse errors as "Error on line N: <details>\n"
	for _, re := range []*regexp.Regexp{linePattern, linePatternShort} {
		m := re.FindStringSubmatchIndex(msg)
		if m == nil {
			continue
		}
		line, _ := strconv.Atoi(msg[m[2]:m[3]])
		detail := strings.TrimSpace(msg[m[4]:m[5]])
		if before := strings.TrimSpace(msg[:m[0]]); before != "" {
			detail = strings.TrimSpace(before + " " + detail)
		}
		return []EvalError{{Line: line, Message: detail}}
	}

	return []EvalError{{Message: strings.TrimSpace(msg)}}
}
