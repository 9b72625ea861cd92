package node

import (
	"time"

	"github.com/benbjohnson/clock"

	"github.com/arloliu/go-clearlink/logger"
)

// Defaults of a Node.
const (
	DefaultLoopInterval      = 100 * time.Millisecond
	DefaultReconnectInterval = 5 * time.Second
	DefaultAccel             = 10000
)

// Option configures a Node.
type Option func(*Node)

// WithClock sets the clock driving the status loop, the deadman and the reconnect limit.
func WithClock(c clock.Clock) Option {
	return func(n *Node) { n.clock = c }
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(n *Node) { n.logger = l }
}

// WithPublisher sets the receiver of status snapshots.
func WithPublisher(p Publisher) Option {
	return func(n *Node) { n.publisher = p }
}

// WithLoopInterval sets the period of the status loop.
func WithLoopInterval(d time.Duration) Option {
	return func(n *Node) { n.loopInterval = d }
}

// WithReconnectInterval sets the minimum time between two reconnect attempts.
func WithReconnectInterval(d time.Duration) Option {
	return func(n *Node) { n.reconnectInterval = d }
}

// WithDeadman stops every axis once no command arrived for d. Zero disables it, which is the default.
func WithDeadman(d time.Duration) Option {
	return func(n *Node) { n.deadman = d }
}

// WithAutoEnable controls the fault clear and enable of all axes after every connect. Enabled by default.
func WithAutoEnable(enable bool) Option {
	return func(n *Node) { n.autoEnable = enable }
}

// WithDefaultAccel sets the acceleration used by commands that carry none.
func WithDefaultAccel(accel uint32) Option {
	return func(n *Node) { n.defaultAccel = accel }
}
