package container

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"kis-gateway-go/infrastructure/logger"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Lifecycle 后台组件的启动/停止/健康检查接口。
type Lifecycle interface {
	Start(ctx context.Context) error
	Stop() error
	Health() error
}

// LifecycleManager 按注册顺序启动、逆序停止。
type LifecycleManager struct {
	mu         sync.RWMutex
	components []Lifecycle
}

func NewLifecycleManager() *LifecycleManager {
	return &LifecycleManager{}
}

func (m *LifecycleManager) Register(component Lifecycle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.components = append(m.components, component)
}

// StartAll 任一组件启动失败时回滚已启动的组件。
func (m *LifecycleManager) StartAll(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for i, component := range m.components {
		if err := component.Start(ctx); err != nil {
			for j := i - 1; j >= 0; j-- {
				_ = m.components[j].Stop()
			}
			return fmt.Errorf("start component %d failed: %w", i, err)
		}
	}
	return nil
}

func (m *LifecycleManager) StopAll() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var lastErr error
	for i := len(m.components) - 1; i >= 0; i-- {
		if err := m.components[i].Stop(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

func (m *LifecycleManager) CheckHealth() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for i, component := range m.components {
		if err := component.Health(); err != nil {
			return fmt.Errorf("component %d unhealthy: %w", i, err)
		}
	}
	return nil
}

// MetricsServer Prometheus /metrics 服务器组件。
type MetricsServer struct {
	addr string
	log  *logger.Logger

	mu     sync.Mutex
	server *http.Server
}

func NewMetricsServer(addr string, log *logger.Logger) *MetricsServer {
	return &MetricsServer{addr: addr, log: log}
}

func (s *MetricsServer) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.server != nil {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: s.addr, Handler: mux}
	s.server = srv

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.LogError(err, map[string]interface{}{
				"component": "metrics_server",
				"addr":      s.addr,
			})
		}
	}()
	return nil
}

func (s *MetricsServer) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := s.server.Shutdown(ctx)
	s.server = nil
	if err != nil {
		return fmt.Errorf("metrics server shutdown failed: %w", err)
	}
	return nil
}

func (s *MetricsServer) Health() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.server == nil {
		return fmt.Errorf("metrics server not started")
	}
	return nil
}
