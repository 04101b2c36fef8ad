package mocks

import (
	"context"
	"encoding/json"
	"os"
	"sync"
)

// MockFFmpegExecutor is a test double for ports.FFmpegExecutor. Unless
// ExecuteFunc is set, Execute writes a small placeholder file at the last
// argument so the pipeline sees a real artifact.
type MockFFmpegExecutor struct {
	ExecuteFunc     func(ctx context.Context, args []string) error
	ProbeFunc       func(ctx context.Context, inputPath string) ([]byte, error)
	CheckEngineFunc func(ctx context.Context) error

	mu           sync.Mutex
	ExecutedArgs [][]string
}

func (m *MockFFmpegExecutor) Execute(ctx context.Context, args []string) error {
	m.mu.Lock()
	m.ExecutedArgs = append(m.ExecutedArgs, append([]string(nil), args...))
	m.mu.Unlock()

	if m.ExecuteFunc != nil {
		return m.ExecuteFunc(ctx, args)
	}
	return WriteOutput(args, []byte("mock-audio-payload"))
}

func (m *MockFFmpegExecutor) Probe(ctx context.Context, inputPath string) ([]byte, error) {
	if m.ProbeFunc != nil {
		return m.ProbeFunc(ctx, inputPath)
	}
	return ProbeResponse("wav", "pcm_s16le", 16000, 1, 12.5), nil
}

func (m *MockFFmpegExecutor) CheckEngine(ctx context.Context) error {
	if m.CheckEngineFunc != nil {
		return m.CheckEngineFunc(ctx)
	}
	return nil
}

// Calls returns a copy of every argument list Execute received.
func (m *MockFFmpegExecutor) Calls() [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]string, len(m.ExecutedArgs))
	copy(out, m.ExecutedArgs)
	return out
}

// WriteOutput writes data to the output path of an ffmpeg argument list.
func WriteOutput(args []string, data []byte) error {
	if len(args) == 0 {
		return nil
	}
	return os.WriteFile(args[len(args)-1], data, 0o644)
}

// ProbeResponse builds ffprobe JSON with a single audio stream.
func ProbeResponse(format, codec string, sampleRate, channels int, duration float64) []byte {
	resp := map[string]interface{}{
		"format": map[string]interface{}{
			"duration":    jsonFloat(duration),
			"format_name": format,
		},
		"streams": []map[string]interface{}{
			{
				"codec_type":  "audio",
				"codec_name":  codec,
				"sample_rate": jsonInt(sampleRate),
				"channels":    channels,
			},
		},
	}
	b, _ := json.Marshal(resp)
	return b
}

func jsonFloat(f float64) string {
	b, _ := json.Marshal(f)
	return string(b)
}

func jsonInt(i int) string {
	b, _ := json.Marshal(i)
	return string(b)
}

// MockStorageProvider is a test double for ports.StorageProvider. Nil
// funcs fall back to harmless defaults.
type MockStorageProvider struct {
	ExistsFunc    func(ctx context.Context, path string) (bool, error)
	IsFileFunc    func(ctx context.Context, path string) (bool, error)
	SizeFunc      func(ctx context.Context, path string) (int64, error)
	RemoveFunc    func(ctx context.Context, path string) error
	RemoveAllFunc func(ctx context.Context, path string) error
	MkdirAllFunc  func(ctx context.Context, dir string) error
	MkdirTempFunc func(ctx context.Context, dir, pattern string) (string, error)
	PromoteFunc   func(ctx context.Context, src, dst string) error
}

func (m *MockStorageProvider) Exists(ctx context.Context, path string) (bool, error) {
	if m.ExistsFunc != nil {
		return m.ExistsFunc(ctx, path)
	}
	return true, nil
}

func (m *MockStorageProvider) IsFile(ctx context.Context, path string) (bool, error) {
	if m.IsFileFunc != nil {
		return m.IsFileFunc(ctx, path)
	}
	return true, nil
}

func (m *MockStorageProvider) Size(ctx context.Context, path string) (int64, error) {
	if m.SizeFunc != nil {
		return m.SizeFunc(ctx, path)
	}
	return 1024, nil
}

func (m *MockStorageProvider) Remove(ctx context.Context, path string) error {
	if m.RemoveFunc != nil {
		return m.RemoveFunc(ctx, path)
	}
	return nil
}

func (m *MockStorageProvider) RemoveAll(ctx context.Context, path string) error {
	if m.RemoveAllFunc != nil {
		return m.RemoveAllFunc(ctx, path)
	}
	return nil
}

func (m *MockStorageProvider) MkdirAll(ctx context.Context, dir string) error {
	if m.MkdirAllFunc != nil {
		return m.MkdirAllFunc(ctx, dir)
	}
	return nil
}

func (m *MockStorageProvider) MkdirTemp(ctx context.Context, dir, pattern string) (string, error) {
	if m.MkdirTempFunc != nil {
		return m.MkdirTempFunc(ctx, dir, pattern)
	}
	return "/tmp/mock_work_dir", nil
}

func (m *MockStorageProvider) Promote(ctx context.Context, src, dst string) error {
	if m.PromoteFunc != nil {
		return m.PromoteFunc(ctx, src, dst)
	}
	return nil
}

// MockPublisher is a test double for ports.Publisher
type MockPublisher struct {
	PublishFunc func(ctx context.Context, localPath, key string) (string, error)

	mu   sync.Mutex
	Keys []string
}

func (m *MockPublisher) Publish(ctx context.Context, localPath, key string) (string, error) {
	m.mu.Lock()
	m.Keys = append(m.Keys, key)
	m.mu.Unlock()

	if m.PublishFunc != nil {
		return m.PublishFunc(ctx, localPath, key)
	}
	return "s3://mock/" + key, nil
}
