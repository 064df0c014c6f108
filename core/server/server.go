// Package server exposes the shell over SSH. Each accepted session gets
// its own interpreter and environment; sessions share nothing beyond the
// listener and configuration.
package server

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/gliderlabs/ssh"
	gossh "golang.org/x/crypto/ssh"

	"github.com/peshell/pesh/core/assist"
	"github.com/peshell/pesh/core/config"
	"github.com/peshell/pesh/core/interp"
	"github.com/peshell/pesh/core/shell"
	"github.com/peshell/pesh/core/state"
)

// Server accepts SSH sessions and runs an interactive shell on each.
type Server struct {
	configuration *config.Configuration
	sshServer     *ssh.Server
}

// New builds the server, loading or generating the host key from the
// config directory.
func New(configuration *config.Configuration) (*Server, error) {
	server := &Server{
		configuration: configuration,
	}

	server.sshServer = &ssh.Server{
		Addr: fmt.Sprintf(":%d", configuration.SSH.Port),
		Handler: func(s ssh.Session) {
			server.handleSession(s)
		},
	}

	signer, err := hostKeySigner(configuration)
	if err != nil {
		return nil, err
	}
	server.sshServer.AddHostKey(signer)

	return server, nil
}

// hostKeySigner loads the persisted host key, generating and storing a
// fresh ed25519 key on first use.
func hostKeySigner(configuration *config.Configuration) (gossh.Signer, error) {
	pemBytes, err := configuration.HostKeyPem()
	if os.IsNotExist(err) {
		pemBytes, err = generateHostKey()
		if err != nil {
			return nil, err
		}
		if err := configuration.WriteHostKeyPem(pemBytes); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}

	return gossh.ParsePrivateKey(pemBytes)
}

func generateHostKey() ([]byte, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	der, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return nil, err
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}), nil
}

func (srv *Server) handleSession(s ssh.Session) {
	env := sessionEnv(srv.configuration, s)

	opts := interp.Options{
		Name:   "pesh",
		Env:    env,
		Stdin:  s,
		Stdout: s,
		Stderr: s.Stderr(),
	}
	if endpoint := srv.configuration.Assist.Endpoint; endpoint != "" {
		opts.Assist = assist.New(endpoint, srv.configuration.Assist.RatePerSec)
	}

	// "ssh host command" runs the command non-interactively.
	if raw := s.RawCommand(); raw != "" {
		in := interp.New(opts)
		s.Exit(in.Run(raw))
		return
	}

	_, _, isPty := s.Pty()
	env.Interactive = true
	in := interp.New(opts)

	sess, err := shell.New(srv.configuration, in, s, s, s.Stderr(), isPty)
	if err != nil {
		fmt.Fprintf(s.Stderr(), "pesh: %v\n", err)
		s.Exit(1)
		return
	}
	defer sess.Close()

	s.Exit(sess.Run())
}

// sessionEnv builds the initial environment for a remote session from
// the SSH request rather than the server's own environment.
func sessionEnv(configuration *config.Configuration, s ssh.Session) *state.Environment {
	env := state.NewFromEnviron(s.Environ(), nil)

	if _, ok := env.Get(shell.EnvPath); !ok {
		env.SetExported(shell.EnvPath, configuration.DefaultPath)
	}
	env.SetExported(shell.EnvUser, s.User())
	if _, ok := env.Get(shell.EnvHostname); !ok {
		host, err := os.Hostname()
		if err != nil {
			host = "localhost"
		}
		env.SetExported(shell.EnvHostname, host)
	}

	home := "/home/" + s.User()
	if s.User() == "root" {
		home = "/root"
	}
	env.SetExported(shell.EnvHome, home)
	if cwd, err := os.Getwd(); err == nil {
		env.Cwd = cwd
	} else {
		env.Cwd = "/"
	}
	env.SetExported(shell.EnvPWD, env.Cwd)

	env.Set(shell.EnvPrompt, prompt(configuration))
	env.Set(shell.EnvPrompt2, configuration.ContinuationPrompt)
	env.SetExported("PESH", "pesh")

	return env
}

func prompt(configuration *config.Configuration) string {
	if strings.TrimSpace(configuration.Prompt) == "" {
		return shell.DefaultPrompt
	}
	return configuration.Prompt
}

// ListenAndServe blocks serving sessions until Shutdown.
func (srv *Server) ListenAndServe() error {
	log.Printf("- Starting SSH server on %s\n", srv.sshServer.Addr)
	return srv.sshServer.ListenAndServe()
}

// Shutdown stops accepting sessions and waits for active ones.
func (srv *Server) Shutdown(ctx context.Context) error {
	return srv.sshServer.Shutdown(ctx)
}
