package internal

import (
	"container/list"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mvollen/pylon/internal/core"
	"github.com/mvollen/pylon/internal/core/client"
	coredebug "github.com/mvollen/pylon/internal/core/debug"
	"github.com/mvollen/pylon/internal/core/peers"
	"github.com/mvollen/pylon/internal/packets"
)

// ErrNotConnected is returned by Shutdown when there is no open listening
// socket, either because the server was never started or because it has
// already been shut down.
var ErrNotConnected = errors.New("server is not listening")

type processRole int

const (
	roleAcceptor processRole = iota
	roleHandler
)

// process is one spawned connection goroutine. Exactly one process holds the
// acceptor role at any time; it promotes itself to a handler once a client
// connects, after spawning its replacement.
type process struct {
	role     processRole
	client   *client.Client
	interval time.Duration
}

// A concurrency-safe wrapper around container/list for maintaining the set
// of live connection processes.
type processList struct {
	processes *list.List
	sync.RWMutex
}

func newProcessList() *processList {
	return &processList{processes: list.New()}
}

func (pl *processList) add(p *process) {
	pl.Lock()
	pl.processes.PushBack(p)
	pl.Unlock()
}

// Note: this comparison is by identity, not by value.
func (pl *processList) remove(p *process) {
	pl.Lock()
	for e := pl.processes.Front(); e != nil; e = e.Next() {
		if e.Value.(*process) == p {
			pl.processes.Remove(e)
			break
		}
	}
	pl.Unlock()
}

// promote converts the acceptor that accepted a connection into the handler
// that will serve it.
func (pl *processList) promote(p *process, c *client.Client) {
	pl.Lock()
	p.role = roleHandler
	p.client = c
	pl.Unlock()
}

func (pl *processList) len() int {
	pl.RLock()
	defer pl.RUnlock()
	return pl.processes.Len()
}

func (pl *processList) countRole(role processRole) int {
	pl.RLock()
	defer pl.RUnlock()

	count := 0
	for e := pl.processes.Front(); e != nil; e = e.Next() {
		if e.Value.(*process).role == role {
			count++
		}
	}
	return count
}

// clients returns a snapshot of every connected client in the list.
func (pl *processList) clients() []*client.Client {
	pl.RLock()
	defer pl.RUnlock()

	var clients []*client.Client
	for e := pl.processes.Front(); e != nil; e = e.Next() {
		if c := e.Value.(*process).client; c != nil {
			clients = append(clients, c)
		}
	}
	return clients
}

// frontend implements the concurrent client connection logic.
//
// Data is read from any connected clients and passed to a Backend instance,
// abstracting the lower level connection details away from the protocol.
type frontend struct {
	Address string
	Backend Backend
	Config  *core.Config
	Logger  *logrus.Logger

	mu       sync.Mutex
	listener *net.TCPListener
	stopped  chan struct{}

	registry *processList
	peers    *peers.Cache
	wg       sync.WaitGroup

	acceptFailures  uint64
	rejectedClients uint64
}

// Start initializes the server backend and opens a TCP socket on the
// frontend's Address, then spawns the first acceptor process. It blocks the
// caller until the process registry drains, which only happens once Shutdown
// has run; the entry point deliberately does not return control while the
// server is serving.
func (f *frontend) Start(ctx context.Context) error {
	if err := f.Backend.Init(ctx); err != nil {
		return fmt.Errorf("error initializing %s server: %v", f.Backend.Identifier(), err)
	}

	hostAddr, err := net.ResolveTCPAddr("tcp", f.Address)
	if err != nil {
		return fmt.Errorf("error resolving address %s: %v", f.Address, err)
	}

	socket, err := net.ListenTCP("tcp", hostAddr)
	if err != nil {
		return fmt.Errorf("error listening on %s: %v", f.Address, err)
	}

	f.mu.Lock()
	if f.listener != nil {
		f.mu.Unlock()
		_ = socket.Close()
		return fmt.Errorf("server is already listening on %s", f.Address)
	}
	f.listener = socket
	f.stopped = make(chan struct{})
	f.registry = newProcessList()
	f.peers = peers.NewCache()
	f.mu.Unlock()

	f.Logger.Printf("[%s] waiting for connections on %v", f.Backend.Identifier(), socket.Addr())

	f.spawnProcess(ctx, roleAcceptor, nil)

	// Block until every process has exited and removed itself.
	for f.registry.len() > 0 {
		time.Sleep(time.Second)
	}

	return nil
}

// Addr returns the address the listening socket is bound to, or nil if the
// server is not listening. Useful when the configured port is 0.
func (f *frontend) Addr() net.Addr {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listener == nil {
		return nil
	}
	return f.listener.Addr()
}

// Shutdown closes the listening socket, notifies connected clients, and waits
// for every connection process to observe the stop signal and exit. Returns
// ErrNotConnected if the server is not listening.
func (f *frontend) Shutdown() error {
	f.mu.Lock()
	socket := f.listener
	if socket == nil {
		f.mu.Unlock()
		return ErrNotConnected
	}
	f.listener = nil
	close(f.stopped)
	f.mu.Unlock()

	f.Logger.Infof("[%v] shutting down (waiting for connections to close)", f.Backend.Identifier())

	for _, c := range f.registry.clients() {
		_ = c.SendPacket(packets.Disconnect, nil)
	}

	if err := socket.Close(); err != nil {
		f.Logger.Warnf("failed to close listening socket: %s", err)
	}

	f.wg.Wait()
	f.Logger.Infof("[%v] exited", f.Backend.Identifier())

	return nil
}

// AcceptFailures returns the number of accept calls that have failed since
// the server started.
func (f *frontend) AcceptFailures() uint64 {
	return atomic.LoadUint64(&f.acceptFailures)
}

// RejectedClients returns the number of connections turned away because the
// server was at capacity.
func (f *frontend) RejectedClients() uint64 {
	return atomic.LoadUint64(&f.rejectedClients)
}

func (f *frontend) spawnProcess(ctx context.Context, role processRole, c *client.Client) {
	p := &process{
		role:     role,
		client:   c,
		interval: f.pollInterval(),
	}

	// Register before the goroutine starts so the registry can never be
	// observed empty while a process is being spawned.
	f.registry.add(p)
	f.wg.Add(1)

	go f.runProcess(ctx, p)
}

func (f *frontend) pollInterval() time.Duration {
	if f.Config != nil && f.Config.PollInterval > 0 {
		return f.Config.PollInterval
	}
	return time.Second
}

func (f *frontend) maxConnections() int {
	if f.Config != nil {
		return f.Config.MaxConnections
	}
	return 0
}

func (f *frontend) packetLoggingEnabled() bool {
	return f.Config != nil && f.Config.Debugging.PacketLoggingEnabled
}

func (f *frontend) stopChan() chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopped
}

func (f *frontend) runProcess(ctx context.Context, p *process) {
	defer f.wg.Done()
	defer f.registry.remove(p)

	if p.role == roleAcceptor {
		connection := f.acceptNextClient()
		if connection == nil {
			return
		}

		// Spawn the replacement acceptor before doing anything with the
		// accepted connection so another client can connect while this
		// one is being served.
		f.spawnProcess(ctx, roleAcceptor, nil)
		f.registry.promote(p, client.NewClient(connection))
	}

	f.serveClient(ctx, p)
}

// acceptNextClient blocks until a client connects or the listening socket is
// closed. Accept failures during normal operation are logged and counted and
// the wait continues.
func (f *frontend) acceptNextClient() *net.TCPConn {
	f.mu.Lock()
	socket := f.listener
	f.mu.Unlock()
	if socket == nil {
		return nil
	}

	stopped := f.stopChan()

	for {
		connection, err := socket.AcceptTCP()
		if err != nil {
			select {
			case <-stopped:
				return nil
			default:
			}

			atomic.AddUint64(&f.acceptFailures, 1)
			f.Logger.Warnf("failed to accept connection: %s", err.Error())
			continue
		}

		return connection
	}
}

// serveClient runs the protocol loop for one accepted connection until the
// Backend reports the client is done, the connection dies, or the server
// shuts down.
func (f *frontend) serveClient(ctx context.Context, p *process) {
	defer f.closeConnectionAndRecover(p)

	c := p.client
	stopped := f.stopChan()

	if lastSeen, ok := f.peers.LastSeen(c.IPAddr()); ok {
		f.Logger.Infof("[%s] accepted connection from %s (returning client, last seen %s)",
			f.Backend.Identifier(), c.RemoteAddr(), lastSeen.Format("15:04:05"))
	} else {
		f.Logger.Infof("[%s] accepted connection from %s", f.Backend.Identifier(), c.RemoteAddr())
	}

	if max := f.maxConnections(); max > 0 && f.registry.countRole(roleHandler) > max {
		atomic.AddUint64(&f.rejectedClients, 1)
		f.Logger.Infof("[%s] rejected connection from %s: server is full", f.Backend.Identifier(), c.RemoteAddr())
		_ = c.SendPacket(packets.Disconnect, nil)
		return
	}

	if err := f.Backend.AcceptClient(c); err != nil {
		f.Logger.Errorf("AcceptClient() failed for client %s: %s", c.RemoteAddr(), err)
		return
	}
	defer f.Backend.ReleaseClient(c)

	buffer := make([]byte, packets.PacketSize)
	connected := true

	for connected {
		select {
		case <-stopped:
			return
		case <-ctx.Done():
			return
		default:
		}

		// Each iteration opens with a keepalive frame, which doubles as
		// proof to the client that the server side is still reachable.
		if err := c.SendPacket(packets.Ack, nil); err != nil {
			f.Logger.Warnf("error writing to client %s: %s", c.RemoteAddr(), err)
			return
		}

		n, packet, err := c.ReceivePacket(buffer, p.interval)
		if err != nil {
			if errors.Is(err, io.EOF) {
				f.Logger.Infof("[%s] client %s closed the connection", f.Backend.Identifier(), c.RemoteAddr())
			} else {
				f.Logger.Warnf("error reading from client %s: %s", c.RemoteAddr(), err)
			}
			return
		}

		if n > 0 {
			if f.packetLoggingEnabled() {
				coredebug.LogPacket(f.Logger, "recv", c.RemoteAddr(), packet)
			}

			connected, err = f.Backend.Handle(ctx, c, packet)
			if err != nil {
				f.Logger.Warn("error in client communication: " + err.Error())
				return
			}
		}

		select {
		case <-stopped:
			return
		case <-time.After(p.interval):
		}
	}
}

// closeConnectionAndRecover is the failsafe that catches any panics and
// disconnects the client regardless of the state of the connection.
func (f *frontend) closeConnectionAndRecover(p *process) {
	if err := recover(); err != nil {
		f.Logger.Errorf("error in client communication with %s: error=%s, trace: %s",
			p.client.RemoteAddr(), err, debug.Stack())
	}

	if err := p.client.Close(); err != nil {
		f.Logger.Warnf("failed to close client connection: %s", err)
	}

	f.peers.MarkSeen(p.client.IPAddr())
	f.Logger.Infof("[%s] disconnected client %s", f.Backend.Identifier(), p.client.RemoteAddr())
}
