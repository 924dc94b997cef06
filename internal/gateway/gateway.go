package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/jacl-coder/PixelStorm-Arena/config"
	"github.com/jacl-coder/PixelStorm-Arena/internal/auth"
	"github.com/jacl-coder/PixelStorm-Arena/internal/models"
)

// ServiceType 服务类型
type ServiceType string

const (
	// ServiceGame 游戏服务
	ServiceGame ServiceType = "game"
)

// ServiceInstance 服务实例
type ServiceInstance struct {
	ID        string      `json:"id"`
	Type      ServiceType `json:"type"`
	URL       *url.URL    `json:"-"`
	Health    bool        `json:"health"`
	LastCheck time.Time   `json:"last_check"`
}

// Dependencies 网关使用的存储和查询接口，均可以为nil
type Dependencies struct {
	Rooms       RoomDirectory
	Leaderboard Leaderboard
	History     MatchHistory
	Profiles    Profiles
}

// Gateway API网关
type Gateway struct {
	config     *config.Config
	deps       Dependencies
	services   map[ServiceType][]*ServiceInstance
	mutex      sync.RWMutex
	httpServer *http.Server
	isRunning  bool
	shutdown   chan struct{}
}

// NewGateway 创建新的网关
func NewGateway(cfg *config.Config, deps Dependencies) *Gateway {
	return &Gateway{
		config:   cfg,
		deps:     deps,
		services: make(map[ServiceType][]*ServiceInstance),
		shutdown: make(chan struct{}),
	}
}

// Start 启动网关
func (g *Gateway) Start() error {
	if g.isRunning {
		return fmt.Errorf("网关已经在运行")
	}

	addr := fmt.Sprintf(":%d", g.config.Server.GatewayPort)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("监听端口失败: %w", err)
	}

	g.httpServer = &http.Server{
		Addr:    addr,
		Handler: g.Handler(),
	}

	// 注册内部服务
	g.registerInternalServices()

	// 启动健康检查
	go g.healthCheck()

	go func() {
		log.Printf("API网关启动，监听端口: %d", g.config.Server.GatewayPort)
		if err := g.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.Printf("HTTP服务器错误: %v", err)
		}
	}()

	g.isRunning = true
	return nil
}

// Run 启动并阻塞直到 ctx 结束
func (g *Gateway) Run(ctx context.Context) error {
	if err := g.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	return g.Stop()
}

// Stop 停止网关
func (g *Gateway) Stop() error {
	if !g.isRunning {
		return nil
	}

	close(g.shutdown)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := g.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("网关关闭错误: %w", err)
	}

	g.isRunning = false
	log.Println("API网关已停止")
	return nil
}

// RegisterService 注册服务
func (g *Gateway) RegisterService(serviceType ServiceType, serviceURL string) error {
	parsedURL, err := url.Parse(serviceURL)
	if err != nil {
		return fmt.Errorf("无效的服务URL: %w", err)
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return fmt.Errorf("无效的服务URL: %s", serviceURL)
	}

	instance := &ServiceInstance{
		ID:        fmt.Sprintf("%s-%d", serviceType, time.Now().UnixNano()),
		Type:      serviceType,
		URL:       parsedURL,
		Health:    true,
		LastCheck: time.Now(),
	}

	g.mutex.Lock()
	defer g.mutex.Unlock()

	g.services[serviceType] = append(g.services[serviceType], instance)
	log.Printf("注册服务: %s, URL: %s", serviceType, serviceURL)

	return nil
}

// UnregisterService 注销服务
func (g *Gateway) UnregisterService(serviceType ServiceType, serviceID string) bool {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	instances, ok := g.services[serviceType]
	if !ok {
		return false
	}

	for i, instance := range instances {
		if instance.ID == serviceID {
			g.services[serviceType] = append(instances[:i], instances[i+1:]...)
			log.Printf("注销服务: %s, ID: %s", serviceType, serviceID)
			return true
		}
	}

	return false
}

// Handler 创建HTTP处理器
func (g *Gateway) Handler() http.Handler {
	mux := http.NewServeMux()

	NewAuthHandler(g.config.Server.JWTSecret, time.Duration(g.config.Server.TokenTTL)*time.Second).RegisterHandlers(mux)
	NewProfileHandler(g.deps.Profiles, g.config.Server.JWTSecret).RegisterHandlers(mux)
	NewStatsHandler(g.deps.Rooms, g.deps.Leaderboard, g.deps.History).RegisterHandlers(mux)

	// 游戏服务的路由（去掉前缀后转发）
	mux.HandleFunc("/game/", g.handleGameRequest)

	// 健康检查端点
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// 服务发现端点
	mux.HandleFunc("/services", g.handleServiceDiscovery)

	return g.applyMiddleware(mux)
}

// applyMiddleware 应用中间件
func (g *Gateway) applyMiddleware(handler http.Handler) http.Handler {
	loggingMiddleware := NewLoggingMiddleware()
	securityMiddleware := NewSecurityMiddleware()
	corsMiddleware := NewCORSMiddleware()
	rateLimiter := NewRateLimiter(120, 20)
	cacheMiddleware := NewCacheMiddleware()

	// 按顺序应用中间件（从外到内）
	handler = cacheMiddleware.Middleware(handler)
	handler = rateLimiter.Middleware(handler)
	handler = corsMiddleware.Middleware(handler)
	handler = securityMiddleware.Middleware(handler)
	handler = loggingMiddleware.Middleware(handler)

	return handler
}

// handleGameRequest 处理游戏服务请求
func (g *Gateway) handleGameRequest(w http.ResponseWriter, r *http.Request) {
	g.forwardRequest(w, r, ServiceGame, "/game")
}

// forwardRequest 校验令牌后转发请求到指定服务
func (g *Gateway) forwardRequest(w http.ResponseWriter, r *http.Request, serviceType ServiceType, prefix string) {
	if _, err := auth.Parse(g.config.Server.JWTSecret, bearerToken(r)); err != nil {
		sendError(w, "未授权", http.StatusUnauthorized)
		return
	}

	instance := g.getServiceInstance(serviceType)
	if instance == nil {
		sendError(w, "服务不可用", http.StatusServiceUnavailable)
		return
	}

	proxy := httputil.NewSingleHostReverseProxy(instance.URL)

	r.URL.Path = strings.TrimPrefix(r.URL.Path, prefix)
	if r.URL.Path == "" {
		r.URL.Path = "/"
	}
	r.Header.Set("X-Forwarded-Host", r.Host)
	r.Header.Set("X-Origin-Host", instance.URL.Host)
	r.Host = instance.URL.Host

	proxy.ServeHTTP(w, r)
}

// handleServiceDiscovery 列出已注册的服务实例
func (g *Gateway) handleServiceDiscovery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		sendError(w, "仅支持GET方法", http.StatusMethodNotAllowed)
		return
	}

	g.mutex.RLock()
	services := make(map[ServiceType][]ServiceInstance, len(g.services))
	for serviceType, instances := range g.services {
		for _, instance := range instances {
			services[serviceType] = append(services[serviceType], *instance)
		}
	}
	g.mutex.RUnlock()

	sendSuccess(w, "查询成功", services)
}

// getServiceInstance 获取健康的服务实例
func (g *Gateway) getServiceInstance(serviceType ServiceType) *ServiceInstance {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	var healthyInstances []*ServiceInstance
	for _, instance := range g.services[serviceType] {
		if instance.Health {
			healthyInstances = append(healthyInstances, instance)
		}
	}

	if len(healthyInstances) == 0 {
		return nil
	}

	// 使用时间戳作为简单的轮询机制
	index := time.Now().UnixNano() % int64(len(healthyInstances))
	return healthyInstances[index]
}

// registerInternalServices 注册本机的游戏服务
func (g *Gateway) registerInternalServices() {
	gameURL := fmt.Sprintf("http://localhost:%d", g.config.Server.GamePort)
	if err := g.RegisterService(ServiceGame, gameURL); err != nil {
		log.Printf("注册服务失败: %v", err)
	}
}

// healthCheck 健康检查
func (g *Gateway) healthCheck() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			g.checkServicesHealth()
		case <-g.shutdown:
			return
		}
	}
}

// checkServicesHealth 检查服务健康状态
func (g *Gateway) checkServicesHealth() {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	client := http.Client{
		Timeout: 2 * time.Second,
	}

	for serviceType, instances := range g.services {
		for _, instance := range instances {
			healthURL := *instance.URL
			healthURL.Path = "/health"

			resp, err := client.Get(healthURL.String())
			healthy := err == nil && resp.StatusCode == http.StatusOK
			if resp != nil {
				resp.Body.Close()
			}

			instance.LastCheck = time.Now()
			if healthy != instance.Health {
				if healthy {
					log.Printf("服务恢复健康: %s, ID: %s", serviceType, instance.ID)
				} else {
					log.Printf("服务不健康: %s, ID: %s", serviceType, instance.ID)
				}
				instance.Health = healthy
			}
		}
	}
}

// APIResponse 网关统一响应
type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// sendSuccess 发送成功响应
func sendSuccess(w http.ResponseWriter, message string, data interface{}) {
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Message: message, Data: data})
}

// sendError 发送错误响应
func sendError(w http.ResponseWriter, message string, statusCode int) {
	writeJSON(w, statusCode, APIResponse{Success: false, Message: message})
}

func writeJSON(w http.ResponseWriter, statusCode int, resp APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Printf("编码响应失败: %v", err)
	}
}

// bearerToken 从 Authorization 头或查询参数获取令牌
func bearerToken(r *http.Request) string {
	if token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "); token != "" {
		return token
	}
	return r.URL.Query().Get("token")
}

// actorFromRequest 解析请求中的令牌
func actorFromRequest(r *http.Request, secret string) (models.ActorID, error) {
	return auth.Parse(secret, bearerToken(r))
}
