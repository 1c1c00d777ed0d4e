package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"

	"github.com/gorilla/mux"

	"manga-canvas-server/modules/common/config"
	geminiclient "manga-canvas-server/modules/common/gemini"
	commonredis "manga-canvas-server/modules/common/redis"
	"manga-canvas-server/modules/generate"
	"manga-canvas-server/modules/results"
	"manga-canvas-server/modules/sketch"
	"manga-canvas-server/modules/studio"
	"manga-canvas-server/modules/upload"
)

// CORS 헤더 추가
func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// 헬스 체크 엔드포인트
func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "healthy",
		"service": "manga-canvas",
	})
}

func main() {
	// 환경변수 로드
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}

	ctx := context.Background()

	// Gemini 클라이언트 초기화
	genaiClient, err := geminiclient.NewClient(ctx, cfg)
	if err != nil {
		log.Fatalf("❌ Failed to create Gemini client: %v", err)
	}

	// Redis 연결 (실패 시 nil - Job은 in-process로 처리)
	redisClient := commonredis.Connect(cfg)

	// 세션 매니저 + 정리 루틴
	manager := studio.NewManager(cfg.SketchWidth, cfg.SketchHeight)
	manager.StartCleanupRoutine()

	// 모듈 초기화
	generateService := generate.NewService(genaiClient, cfg)
	jobStore := generate.NewJobStore()
	worker := generate.NewWorker(generateService, manager, jobStore, redisClient)

	studioHandler := studio.NewHandler(manager)
	uploadHandler := upload.NewHandler(upload.NewService(), manager)
	sketchHandler := sketch.NewHandler(manager)
	generateHandler := generate.NewHandler(generateService, manager, jobStore, worker, redisClient)
	resultsHandler := results.NewHandler(manager)

	// Redis Queue Worker 시작 (백그라운드)
	go worker.Start(ctx)

	// 라우터 설정
	r := mux.NewRouter()

	// CORS 미들웨어 적용
	r.Use(enableCORS)

	// 라우트 설정
	r.HandleFunc("/", healthCheck).Methods("GET")
	r.HandleFunc("/health", healthCheck).Methods("GET")
	studioHandler.RegisterRoutes(r)
	uploadHandler.RegisterRoutes(r)
	sketchHandler.RegisterRoutes(r)
	generateHandler.RegisterRoutes(r)
	resultsHandler.RegisterRoutes(r)

	// 포트 설정 (배포 환경은 PORT 환경변수 사용)
	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.Port
	}

	log.Printf("🚀 Manga Canvas Server starting on port %s", port)
	log.Printf("📡 Sketch WebSocket endpoint: ws://localhost:%s/ws/sketch", port)
	log.Printf("❤️  Health check: http://localhost:%s/health", port)
	log.Printf("📊 Metrics: http://localhost:%s/metrics", port)

	// 서버 시작
	if err := http.ListenAndServe(":"+port, r); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}
