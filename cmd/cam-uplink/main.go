// cmd/cam-uplink/main.go
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/sua-org/cam-uplink/internal/capture"
	"github.com/sua-org/cam-uplink/internal/config"
	"github.com/sua-org/cam-uplink/internal/connectivity"
	"github.com/sua-org/cam-uplink/internal/mqttclient"
	"github.com/sua-org/cam-uplink/internal/scheduler"
	"github.com/sua-org/cam-uplink/internal/status"
	"github.com/sua-org/cam-uplink/internal/storage"
	"github.com/sua-org/cam-uplink/internal/uploader"
)

func main() {
	// Carrega .env na raiz (se não existir, só loga aviso)
	if err := godotenv.Load(); err != nil {
		log.Printf("[main] aviso: não foi possível carregar .env: %v", err)
	} else {
		log.Printf("[main] .env carregado com sucesso")
	}

	cfg := config.FromEnv()
	if err := cfg.Validate(); err != nil {
		// Config inválida é fatal: não existe loop sem config válida.
		log.Fatalf("configuração inválida: %v", err)
	}

	logStartup(cfg)

	backend, err := capture.New(cfg)
	if err != nil {
		log.Fatalf("erro ao criar backend de captura: %v", err)
	}

	// Inicializa MinIO (opcional; se falhar, continua sem arquivo remoto)
	store, err := storage.NewMinioStoreFromEnv()
	if err != nil {
		log.Printf("[main] aviso: MinIO não inicializado: %v", err)
	} else {
		storage.DefaultStore = store
	}

	sched := scheduler.New(cfg, backend, uploader.New(cfg))
	sched.SetProbe(connectivity.Probe)

	// Status via MQTT (opcional; sem broker o daemon roda normal)
	mqttCli, err := mqttclient.NewClientFromEnv("cam-uplink")
	if err != nil {
		log.Printf("[main] aviso: status MQTT desabilitado: %v", err)
	} else {
		defer mqttCli.Close()
		sched.SetNotify(status.NewPublisher(mqttCli).Publish)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		log.Println("[main] sinal recebido, encerrando...")
		cancel()
	}()

	if err := sched.Run(ctx); err != nil {
		log.Printf("[main] scheduler terminou com erro: %v", err)
	}
	log.Println("[main] encerrado")
}

func logStartup(cfg config.Config) {
	log.Printf("[main] upload url: %s", cfg.UploadURL)
	log.Printf("[main] capture method: %s", strings.ToUpper(string(cfg.Method)))
	if cfg.Method == config.CaptureRTSP {
		log.Printf("[main] rtsp url: %s (timeout %s)", cfg.RTSPURL, cfg.RTSPTimeout)
	} else {
		log.Printf("[main] snapshot url: %s", cfg.SnapshotURL)
	}
	log.Printf("[main] ping host: %s", cfg.PingHost)
	log.Printf("[main] normal delay: %s, error delay: %s", cfg.Delay, cfg.LongDelay)
	log.Printf("[main] request timeout: %s, max retries: %d", cfg.RequestTimeout, cfg.MaxRetries)
}
