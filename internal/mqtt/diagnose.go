// diagnose.go: staged broker connectivity check used by the CLI.
package mqtt

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"
)

// Stage is a step of the connectivity check.
type Stage int

const (
	DNSResolution Stage = iota
	TCPConnection
	MQTTConnection
	MessagePublish
)

// String returns the string representation of a stage
func (s Stage) String() string {
	switch s {
	case DNSResolution:
		return "DNS Resolution"
	case TCPConnection:
		return "TCP Connection"
	case MQTTConnection:
		return "MQTT Connection"
	case MessagePublish:
		return "Message Publishing"
	default:
		return "Unknown Stage"
	}
}

// StageResult is the outcome of one stage.
type StageResult struct {
	Stage   string        `json:"stage"`
	Success bool          `json:"success"`
	Error   string        `json:"error,omitempty"`
	Elapsed time.Duration `json:"elapsed"`
}

const stageTimeout = 10 * time.Second

// Dialer opens the TCP connection of the second stage.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Diagnose runs the stages in order and stops at the first failure. The
// publish stage sends a test message to <topic>/test.
func Diagnose(ctx context.Context, cfg Config, c Client, d Dialer) []StageResult {
	if d == nil {
		d = &net.Dialer{}
	}
	u, err := brokerURL(cfg.Broker)
	if err != nil {
		return []StageResult{{Stage: DNSResolution.String(), Error: err.Error()}}
	}
	host, port := u.Hostname(), u.Port()
	if port == "" {
		port = "1883"
	}

	stages := []struct {
		stage Stage
		run   func(context.Context) error
	}{
		{DNSResolution, func(ctx context.Context) error {
			if net.ParseIP(host) != nil {
				return nil
			}
			_, err := net.DefaultResolver.LookupHost(ctx, host)
			return err
		}},
		{TCPConnection, func(ctx context.Context) error {
			conn, err := d.DialContext(ctx, "tcp", net.JoinHostPort(host, port))
			if err != nil {
				return err
			}
			return conn.Close()
		}},
		{MQTTConnection, c.Connect},
		{MessagePublish, func(ctx context.Context) error {
			payload := fmt.Sprintf(`{"test":true,"timestamp":%q}`, time.Now().Format(time.RFC3339))
			return c.Publish(ctx, testTopic(cfg.Topic), []byte(payload))
		}},
	}

	results := make([]StageResult, 0, len(stages))
	for _, s := range stages {
		stageCtx, cancel := context.WithTimeout(ctx, stageTimeout)
		start := time.Now()
		err := s.run(stageCtx)
		cancel()

		r := StageResult{Stage: s.stage.String(), Success: err == nil, Elapsed: time.Since(start)}
		if err != nil {
			r.Error = err.Error()
		}
		results = append(results, r)
		if err != nil {
			break
		}
	}
	return results
}

func testTopic(baseTopic string) string {
	base := strings.Trim(strings.TrimSpace(baseTopic), "/")
	if base == "" {
		return "test"
	}
	return base + "/test"
}
