package mcp

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/zeohealth/zeo-server/internal/types"
)

// ErrNoServer is returned when no enabled server can take a call.
var ErrNoServer = errors.New("no MCP server enabled")

// ServerConfig describes one MCP server the client may delegate to.
type ServerConfig struct {
	Name        string `yaml:"name"`
	Transport   string `yaml:"transport"`
	Endpoint    string `yaml:"endpoint"`
	APIKey      string `yaml:"api_key"`
	Enabled     bool   `yaml:"enabled"`
	Description string `yaml:"description"`
}

// Client is a thin adapter over the configured MCP server fleet. It
// holds no protocol state of its own: each call is a single HTTP tool
// invocation against the first enabled server, and connectivity is
// tracked per server for the health endpoints.
type Client struct {
	servers []ServerConfig
	http    *http.Client

	mu     sync.RWMutex
	status map[string]string
}

// NewClient creates a client for the given server configurations.
func NewClient(servers []ServerConfig) *Client {
	c := &Client{
		servers: servers,
		http:    &http.Client{Timeout: 120 * time.Second},
		status:  make(map[string]string),
	}
	for _, s := range servers {
		if s.Enabled {
			c.status[s.Name] = "configured"
		} else {
			c.status[s.Name] = "disabled"
		}
	}
	return c
}

// Connected reports whether at least one server is enabled.
func (c *Client) Connected() bool {
	for _, s := range c.servers {
		if s.Enabled {
			return true
		}
	}
	return false
}

// ConnectedServers returns the names of all enabled servers.
func (c *Client) ConnectedServers() []string {
	names := make([]string, 0, len(c.servers))
	for _, s := range c.servers {
		if s.Enabled {
			names = append(names, s.Name)
		}
	}
	return names
}

// ServerStatus returns the last known per-server connection status.
func (c *Client) ServerStatus() map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]string, len(c.status))
	for name, st := range c.status {
		out[name] = st
	}
	return out
}

// toolRequest is the wire form of one tool invocation.
type toolRequest struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
}

// toolResponse is the common envelope returned by tool endpoints.
type toolResponse struct {
	Success       bool     `json:"success"`
	Error         string   `json:"error"`
	Transcription string   `json:"transcription"`
	Summary       string   `json:"summary"`
	Keywords      []string `json:"keywords"`
}

// TranscribeAudio sends the audio file to the transcription server and
// returns the transcript text.
func (c *Client) TranscribeAudio(audioPath string) (string, error) {
	data, err := os.ReadFile(audioPath)
	if err != nil {
		return "", fmt.Errorf("read audio file: %w", err)
	}

	resp, err := c.callTool("transcription", toolRequest{
		Name: "transcribe_audio",
		Arguments: map[string]interface{}{
			"filename": filepath.Base(audioPath),
			"audio":    base64.StdEncoding.EncodeToString(data),
		},
	})
	if err != nil {
		return "", err
	}
	if resp.Transcription == "" {
		return "", errors.New("transcription server returned empty result")
	}
	return resp.Transcription, nil
}

// AnalyzeTranscription asks the clinical-analysis server for a summary
// and keywords of the given transcript.
func (c *Client) AnalyzeTranscription(text string) (*types.Analysis, error) {
	resp, err := c.callTool("clinical-analysis", toolRequest{
		Name: "analyze_transcription",
		Arguments: map[string]interface{}{
			"text": text,
		},
	})
	if err != nil {
		return nil, err
	}
	return &types.Analysis{
		Summary:  resp.Summary,
		Keywords: resp.Keywords,
	}, nil
}

// callTool posts one tool invocation to the named server, falling back
// to any enabled server when no server carries that name.
func (c *Client) callTool(serverName string, req toolRequest) (*toolResponse, error) {
	server, err := c.pickServer(serverName)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode tool call: %w", err)
	}

	httpReq, err := http.NewRequest(http.MethodPost, server.Endpoint+"/tools/call", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if server.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+server.APIKey)
	}

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		c.setStatus(server.Name, "unreachable")
		return nil, fmt.Errorf("call %s: %w", server.Name, err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		c.setStatus(server.Name, fmt.Sprintf("error (%d)", httpResp.StatusCode))
		return nil, fmt.Errorf("call %s: status %d", server.Name, httpResp.StatusCode)
	}

	var resp toolResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", server.Name, err)
	}
	if !resp.Success {
		return nil, fmt.Errorf("%s tool %s failed: %s", server.Name, req.Name, resp.Error)
	}

	c.setStatus(server.Name, "connected")
	return &resp, nil
}

// pickServer returns the enabled server with the given name, or the
// first enabled server when the name is unknown.
func (c *Client) pickServer(name string) (ServerConfig, error) {
	var first *ServerConfig
	for i, s := range c.servers {
		if !s.Enabled {
			continue
		}
		if s.Name == name {
			return s, nil
		}
		if first == nil {
			first = &c.servers[i]
		}
	}
	if first != nil {
		return *first, nil
	}
	return ServerConfig{}, ErrNoServer
}

func (c *Client) setStatus(name, status string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status[name] = status
}
