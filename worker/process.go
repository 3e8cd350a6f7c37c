package worker

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

const (
	// Protocol lines can carry whole serialized scenarios; allow generous
	// buffers before giving up on a line.
	initialScanBuffer = 64 * 1024
	maxScanBuffer     = 4 * 1024 * 1024
)

// ProcessUnit backs an ExecutionUnit with an OS child process speaking
// newline-delimited JSON envelopes over stdin/stdout. Stderr is forwarded to
// the coordinator log.
type ProcessUnit struct {
	cmd      *exec.Cmd
	stdin    io.WriteCloser
	messages chan Message
	log      *zap.Logger

	writeMu sync.Mutex
	killed  atomic.Bool
}

// StartProcess launches the worker binary and begins decoding its output.
// The returned unit's Messages channel closes when the process exits or its
// stdout closes.
func StartProcess(ctx context.Context, binary string, args []string, env []string, log *zap.Logger) (*ProcessUnit, error) {
	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Env = append(os.Environ(), env...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start worker process: %w", err)
	}

	p := &ProcessUnit{
		cmd:      cmd,
		stdin:    stdin,
		messages: make(chan Message, 16),
		log:      log,
	}

	var pipes sync.WaitGroup
	pipes.Add(2)
	go p.readStdout(stdout, &pipes)
	go p.readStderr(stderr, &pipes)
	go func() {
		pipes.Wait()
		if err := cmd.Wait(); err != nil && !p.killed.Load() {
			log.Warn("worker process exited with error", zap.Error(err))
		}
		close(p.messages)
	}()

	return p, nil
}

func (p *ProcessUnit) readStdout(r io.Reader, wg *sync.WaitGroup) {
	defer wg.Done()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, initialScanBuffer), maxScanBuffer)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		msg, err := Decode(line)
		if err != nil {
			// Stray writes to stdout are treated as log lines rather than
			// protocol errors.
			p.messages <- &LogMsg{Message: string(line)}
			continue
		}
		p.messages <- msg
	}
	if err := scanner.Err(); err != nil {
		p.log.Debug("worker stdout closed", zap.Error(err))
	}
}

func (p *ProcessUnit) readStderr(r io.Reader, wg *sync.WaitGroup) {
	defer wg.Done()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, initialScanBuffer), maxScanBuffer)
	for scanner.Scan() {
		if line := scanner.Text(); line != "" {
			p.log.Warn("worker stderr", zap.String("line", line))
		}
	}
}

// Send writes one envelope line to the process stdin.
func (p *ProcessUnit) Send(m Message) error {
	data, err := Encode(m)
	if err != nil {
		return err
	}
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	_, err = p.stdin.Write(append(data, '\n'))
	return err
}

// Messages returns the decoded message stream from the process.
func (p *ProcessUnit) Messages() <-chan Message {
	return p.messages
}

// Kill force-terminates the process.
func (p *ProcessUnit) Kill() error {
	if !p.killed.CompareAndSwap(false, true) {
		return nil
	}
	_ = p.stdin.Close()
	if p.cmd.Process == nil {
		return nil
	}
	return p.cmd.Process.Kill()
}

// ProcessFactory returns a UnitFactory spawning binary with args for every
// worker slot. The worker's numeric identity travels in its environment.
func ProcessFactory(binary string, args []string, log *zap.Logger) UnitFactory {
	return func(ctx context.Context, workerID int) (ExecutionUnit, error) {
		env := []string{fmt.Sprintf("PWT_WORKER_ID=%d", workerID)}
		return StartProcess(ctx, binary, args, env, log.With(zap.Int("worker", workerID)))
	}
}
