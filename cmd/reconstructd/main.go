// Command reconstructd is the reconstruction-core process entrypoint: it
// loads configuration, wires the Reconstruction Worker's concrete network
// adapters, serves Prometheus metrics, and reads NDJSON reconstruction
// orders (one command per line) from stdin until EOF (section 4.1,
// section 6).
package main

import (
	"bufio"
	"bytes"
	"flag"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/IdleFellow/stripedrecon/cmn/nlog"
	"github.com/IdleFellow/stripedrecon/order"
	"github.com/IdleFellow/stripedrecon/peer"
	"github.com/IdleFellow/stripedrecon/recon"
)

func main() {
	configPath := flag.String("config", "", "path to a JSON config document (optional, defaults apply)")
	token := flag.String("token", "dev-token", "static access token used for every peer handshake")
	flag.Parse()

	cfg := recon.DefaultConfig()
	if *configPath != "" {
		f, err := os.Open(*configPath)
		if err != nil {
			nlog.Errorln("open config", err)
			os.Exit(1)
		}
		cfg, err = recon.LoadConfig(f)
		f.Close()
		if err != nil {
			nlog.Errorln("load config", err)
			os.Exit(1)
		}
	}
	nlog.SetLevel(cfg.LogLevel)

	reg := prometheus.NewRegistry()
	metrics := recon.NewMetrics(reg)
	report := recon.LoggingReportSink{}
	tokens := peer.StaticTokenSource{Token_: []byte(*token)}

	worker := recon.NewWorker(cfg, tokens, report, metrics)
	defer worker.Shutdown()

	go serveMetrics(cfg.MetricsAddr, reg)

	ingestStdin(worker)
}

func serveMetrics(addr string, reg *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	nlog.Infoln("metrics listening on", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		nlog.Errorln("metrics server", err)
	}
}

// ingestStdin reads one JSON-encoded order.Command per line until EOF and
// submits each as a one-command batch, matching section 6's "Input
// command (per task)" shape for a process fed by a command-dispatch layer
// this module treats as an external collaborator (section 1).
func ingestStdin(worker *recon.Worker) {
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		cmd, err := order.DecodeCommand(bytes.NewReader(line))
		if err != nil {
			nlog.Warningln("decode order", err)
			continue
		}
		worker.Submit(order.Batch{Commands: []order.Command{cmd}})
	}
	if err := scanner.Err(); err != nil {
		nlog.Errorln("read stdin", err)
	}
}
