// internal/status/publisher.go
package status

import (
	"encoding/json"
	"log"
	"os"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/sua-org/cam-uplink/internal/mqttclient"
	"github.com/sua-org/cam-uplink/internal/scheduler"
)

// Publisher publica o resultado de cada ciclo num tópico retained, junto com
// métricas do processo. É observabilidade pura: erro aqui é só log.
type Publisher struct {
	mqtt     *mqttclient.Client
	topic    string
	hostname string
	proc     *process.Process
}

func NewPublisher(cli *mqttclient.Client) *Publisher {
	base := strings.TrimSuffix(getenv("MQTT_BASE_TOPIC", "cam-uplink"), "/")
	hostname, _ := os.Hostname()

	var proc *process.Process
	if p, err := process.NewProcess(int32(os.Getpid())); err == nil {
		proc = p
	}

	return &Publisher{
		mqtt:     cli,
		topic:    base + "/status",
		hostname: hostname,
		proc:     proc,
	}
}

// Publish serve de hook de notify do scheduler.
func (p *Publisher) Publish(res scheduler.Result) {
	payload := map[string]interface{}{
		"service":   "cam-uplink",
		"hostname":  p.hostname,
		"timestamp": res.At.UTC().Format(time.RFC3339),
		"reachable": res.Reachable,
	}

	if res.Success {
		payload["status"] = "ok"
		payload["attempts"] = res.Attempts
		payload["status_code"] = res.StatusCode
	} else {
		payload["status"] = "failed"
		payload["stage"] = string(res.Stage)
		if res.Attempts > 0 {
			payload["attempts"] = res.Attempts
		}
		if res.StatusCode != 0 {
			payload["status_code"] = res.StatusCode
		}
		if res.Err != nil {
			payload["last_error"] = res.Err.Error()
		}
	}

	if p.proc != nil {
		if cpu, err := p.proc.CPUPercent(); err == nil {
			payload["cpu_percent"] = cpu
		}
		if memInfo, err := p.proc.MemoryInfo(); err == nil {
			payload["memory_rss_bytes"] = memInfo.RSS
		}
	}

	b, err := json.Marshal(payload)
	if err != nil {
		log.Printf("[status] marshal failed: %v", err)
		return
	}

	// retain=true: quem assinar depois vê o último estado conhecido
	if err := p.mqtt.Publish(p.topic, 1, true, b); err != nil {
		log.Printf("[status] publish failed on %s: %v", p.topic, err)
		return
	}
	log.Printf("[status] cycle status published -> %s", p.topic)
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
