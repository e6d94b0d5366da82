package driver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"golang.org/x/crypto/ssh"

	"github.com/VoxelHeimGame/db-cluster/internal/provisioning"
	"github.com/VoxelHeimGame/db-cluster/internal/util/retry"
)

const (
	defaultSSHPort        = 22
	defaultSSHDialTimeout = 10 * time.Second
	defaultSSHMaxRetries  = 3
	defaultSSHRetryDelay  = 2 * time.Second
	defaultSSHMaxDelay    = 10 * time.Second
)

// SSHConfig configures SSHDriver.
type SSHConfig struct {
	Host       string
	Port       int
	User       string
	PrivateKey []byte

	// ScriptDir is the script directory on the remote host.
	ScriptDir string
	// Shell runs the scripts. Defaults to bash.
	Shell   string
	Timeout time.Duration

	// DialTimeout is the timeout for establishing the TCP connection.
	DialTimeout time.Duration
	// MaxRetries bounds connection attempts.
	MaxRetries int
	// RetryDelay is the initial delay between connection attempts.
	RetryDelay time.Duration

	// HostKeyCallback handles host key verification.
	// If nil, ssh.InsecureIgnoreHostKey() is used.
	HostKeyCallback ssh.HostKeyCallback
}

// SSHDriver runs provisioning scripts on a remote host over SSH.
// The private key is parsed once; a connection is opened per Run.
type SSHDriver struct {
	config SSHConfig
	signer ssh.Signer
}

// NewSSHDriver validates cfg and parses the private key.
func NewSSHDriver(cfg SSHConfig) (*SSHDriver, error) {
	if cfg.Host == "" {
		return nil, errors.New("ssh host cannot be empty")
	}
	if cfg.User == "" {
		return nil, errors.New("ssh user cannot be empty")
	}
	if len(cfg.PrivateKey) == 0 {
		return nil, errors.New("ssh private key cannot be empty")
	}
	if cfg.ScriptDir == "" {
		return nil, errors.New("remote script directory cannot be empty")
	}

	if cfg.Port == 0 {
		cfg.Port = defaultSSHPort
	}
	if cfg.Shell == "" {
		cfg.Shell = "bash"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = defaultSSHDialTimeout
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = defaultSSHMaxRetries
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = defaultSSHRetryDelay
	}
	if cfg.HostKeyCallback == nil {
		cfg.HostKeyCallback = ssh.InsecureIgnoreHostKey() //nolint:gosec // provisioning hosts are addressed by operator config
	}

	signer, err := ssh.ParsePrivateKey(cfg.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	return &SSHDriver{config: cfg, signer: signer}, nil
}

// Run executes the script for op on the remote host.
func (d *SSHDriver) Run(ctx context.Context, op provisioning.Operation, args []string) (Result, error) {
	logger := logr.FromContextOrDiscard(ctx).WithValues("operation", op.String(), "host", d.config.Host)

	script, err := op.Script()
	if err != nil {
		return Result{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, d.config.Timeout)
	defer cancel()

	command := d.command(script, args, OperationID(ctx))
	logger.V(1).Info("executing remote provisioning script", "command", command)

	start := time.Now()
	client, err := d.connect(ctx)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return Result{Duration: time.Since(start)}, fmt.Errorf("%w: connecting to %s", ErrTimeout, d.config.Host)
		}
		return Result{Duration: time.Since(start)}, fmt.Errorf("%w: %w", ErrCommandFailed, err)
	}
	defer func() { _ = client.Close() }()

	res, err := d.runCommand(ctx, client, command)
	res.Duration = time.Since(start)
	logger.V(1).Info("remote provisioning script finished", "exitCode", res.ExitCode, "duration", res.Duration, "output", res.Output)
	return res, err
}

// command builds the remote shell command line.
func (d *SSHDriver) command(script string, args []string, opID string) string {
	var b strings.Builder
	b.WriteString("cd ")
	b.WriteString(shellQuote(d.config.ScriptDir))
	b.WriteString(" && ")
	if opID != "" {
		b.WriteString(OperationIDEnv + "=" + shellQuote(opID) + " ")
	}
	b.WriteString(d.config.Shell)
	b.WriteString(" ")
	b.WriteString(shellQuote(path.Clean(script)))
	for _, a := range args {
		b.WriteString(" ")
		b.WriteString(shellQuote(a))
	}
	return b.String()
}

// connect establishes the SSH connection with retry logic.
func (d *SSHDriver) connect(ctx context.Context) (*ssh.Client, error) {
	clientConfig := &ssh.ClientConfig{
		User:            d.config.User,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(d.signer)},
		HostKeyCallback: d.config.HostKeyCallback,
		Timeout:         d.config.DialTimeout,
	}

	addr := fmt.Sprintf("%s:%d", d.config.Host, d.config.Port)
	var client *ssh.Client
	err := retry.WithExponentialBackoff(ctx, func() error {
		var dialErr error
		client, dialErr = ssh.Dial("tcp", addr, clientConfig)
		return dialErr
	},
		retry.WithMaxRetries(d.config.MaxRetries),
		retry.WithInitialDelay(d.config.RetryDelay),
		retry.WithMaxDelay(defaultSSHMaxDelay),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to establish SSH connection to %s: %w", addr, err)
	}
	return client, nil
}

// runCommand runs command in a new session and aborts it when ctx is done.
func (d *SSHDriver) runCommand(ctx context.Context, client *ssh.Client, command string) (Result, error) {
	session, err := client.NewSession()
	if err != nil {
		return Result{}, fmt.Errorf("%w: failed to create SSH session on %s: %w", ErrCommandFailed, d.config.Host, err)
	}
	defer func() { _ = session.Close() }()

	var buf syncBuffer
	session.Stdout = &buf
	session.Stderr = &buf

	done := make(chan error, 1)
	go func() { done <- session.Run(command) }()

	select {
	case <-ctx.Done():
		// The remote script may keep running after the session closes.
		_ = session.Close()
		return Result{Output: buf.String(), ExitCode: -1}, fmt.Errorf("%w: %s on %s", ErrTimeout, command, d.config.Host)
	case runErr := <-done:
		res := Result{Output: buf.String()}
		if runErr == nil {
			return res, nil
		}
		var exitErr *ssh.ExitError
		if errors.As(runErr, &exitErr) {
			res.ExitCode = exitErr.ExitStatus()
		} else {
			res.ExitCode = -1
		}
		return res, fmt.Errorf("%w on %s: %w", ErrCommandFailed, d.config.Host, runErr)
	}
}

// syncBuffer is a bytes.Buffer safe for the concurrent stdout/stderr copiers
// of an SSH session.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
