// Package transport carries view requests from clients to the inspector.
// A Node is an in-process service registry; WebsocketBridge exposes a
// Node's services to remote clients.
package transport

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"go.uber.org/zap"
)

var (
	ErrServiceExists = errors.New("service already advertised")
	ErrNoService     = errors.New("no such service")
)

// Handler answers a request carrying a string payload with a boolean
// acknowledgement.
type Handler func(data string) bool

type Node struct {
	mu       sync.RWMutex
	services map[string]Handler
	log      *zap.Logger
}

func NewNode(log *zap.Logger) *Node {
	if log == nil {
		log = zap.NewNop()
	}
	return &Node{services: make(map[string]Handler), log: log}
}

// Advertise registers h under service. A service name can only be taken
// once.
func (n *Node) Advertise(service string, h Handler) error {
	if service == "" || h == nil {
		return fmt.Errorf("advertise %q: empty service or handler", service)
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, ok := n.services[service]; ok {
		return fmt.Errorf("advertise %q: %w", service, ErrServiceExists)
	}
	n.services[service] = h
	n.log.Debug("service advertised", zap.String("service", service))
	return nil
}

func (n *Node) Unadvertise(service string) {
	n.mu.Lock()
	delete(n.services, service)
	n.mu.Unlock()
}

// Request calls the handler of service. Handlers run on the caller's
// goroutine.
func (n *Node) Request(ctx context.Context, service, data string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	n.mu.RLock()
	h, ok := n.services[service]
	n.mu.RUnlock()
	if !ok {
		return false, fmt.Errorf("request %q: %w", service, ErrNoService)
	}
	return h(data), nil
}

// Services lists the advertised service names in order.
func (n *Node) Services() []string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	res := make([]string, 0, len(n.services))
	for s := range n.services {
		res = append(res, s)
	}
	slices.Sort(res)
	return res
}
