package resultdb

import (
	"fmt"
	"io"
	"net"
	"os"
	"sync"

	"golang.org/x/crypto/ssh"

	"github.com/newtron-network/queuecheck/pkg/util"
)

// DefaultRemoteAddr is where the results Redis listens on the SSH host.
const DefaultRemoteAddr = "127.0.0.1:6379"

// TunnelConfig describes how to reach a results Redis behind SSH.
type TunnelConfig struct {
	// Host is "host" or "host:port"; the port defaults to 22.
	Host     string
	User     string
	Password string
	// KeyFile is a private key used instead of, or in addition to, Password.
	KeyFile string
	// Remote is the address dialed from the SSH host.
	Remote string
	// HostKey verifies the server. Nil accepts any host key.
	HostKey ssh.HostKeyCallback
}

// SSHTunnel forwards a local TCP port to a remote address through an SSH
// connection. Lab results databases usually listen on loopback only.
type SSHTunnel struct {
	localAddr string
	remote    string
	sshClient *ssh.Client
	listener  net.Listener
	done      chan struct{}
	wg        sync.WaitGroup
}

func (cfg TunnelConfig) clientConfig() (*ssh.ClientConfig, error) {
	var auth []ssh.AuthMethod
	if cfg.KeyFile != "" {
		pem, err := os.ReadFile(cfg.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("reading SSH key: %w", err)
		}
		signer, err := ssh.ParsePrivateKey(pem)
		if err != nil {
			return nil, fmt.Errorf("parsing SSH key %s: %w", cfg.KeyFile, err)
		}
		auth = append(auth, ssh.PublicKeys(signer))
	}
	if cfg.Password != "" {
		auth = append(auth, ssh.Password(cfg.Password))
	}
	if len(auth) == 0 {
		return nil, fmt.Errorf("SSH tunnel to %s: %w: no password or key", cfg.Host, util.ErrInvalidConfig)
	}

	hostKey := cfg.HostKey
	if hostKey == nil {
		// Lab hosts are reprovisioned often and their keys change.
		hostKey = ssh.InsecureIgnoreHostKey()
	}
	return &ssh.ClientConfig{
		User:            cfg.User,
		Auth:            auth,
		HostKeyCallback: hostKey,
	}, nil
}

// NewSSHTunnel dials SSH on cfg.Host and opens a local listener on a random
// port. Connections to the local port are forwarded to cfg.Remote.
func NewSSHTunnel(cfg TunnelConfig) (*SSHTunnel, error) {
	config, err := cfg.clientConfig()
	if err != nil {
		return nil, err
	}

	addr := cfg.Host
	if _, _, err := net.SplitHostPort(addr); err != nil {
		addr = net.JoinHostPort(addr, "22")
	}
	remote := cfg.Remote
	if remote == "" {
		remote = DefaultRemoteAddr
	}

	sshClient, err := ssh.Dial("tcp", addr, config)
	if err != nil {
		return nil, fmt.Errorf("SSH dial %s: %w", addr, err)
	}

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		sshClient.Close()
		return nil, fmt.Errorf("local listen: %w", err)
	}

	t := &SSHTunnel{
		localAddr: listener.Addr().String(),
		remote:    remote,
		sshClient: sshClient,
		listener:  listener,
		done:      make(chan struct{}),
	}

	t.wg.Add(1)
	go t.acceptLoop()

	util.Logger.Debugf("SSH tunnel %s -> %s via %s", t.localAddr, remote, addr)
	return t, nil
}

// LocalAddr returns the local address (e.g. "127.0.0.1:54321") that
// forwards to the remote address.
func (t *SSHTunnel) LocalAddr() string {
	return t.localAddr
}

// Close stops the listener, closes the SSH connection, and waits for
// all forwarding goroutines to finish.
func (t *SSHTunnel) Close() error {
	close(t.done)
	t.listener.Close()
	err := t.sshClient.Close()
	t.wg.Wait()
	return err
}

func (t *SSHTunnel) acceptLoop() {
	defer t.wg.Done()
	for {
		local, err := t.listener.Accept()
		if err != nil {
			select {
			case <-t.done:
				return
			default:
				continue
			}
		}
		t.wg.Add(1)
		go t.forward(local)
	}
}

func (t *SSHTunnel) forward(local net.Conn) {
	defer t.wg.Done()
	defer local.Close()

	remote, err := t.sshClient.Dial("tcp", t.remote)
	if err != nil {
		util.Logger.Debugf("SSH tunnel dial %s: %v", t.remote, err)
		return
	}
	defer remote.Close()

	done := make(chan struct{}, 2)
	go func() {
		io.Copy(remote, local)
		done <- struct{}{}
	}()
	go func() {
		io.Copy(local, remote)
		done <- struct{}{}
	}()
	select {
	case <-done:
	case <-t.done:
	}
}
