// Package main wires a manager.Manager to an internal/testreader
// Reader and an internal/testhost table, and drives a couple of
// snapshots end to end, the way cmd/semstreams/main.go wires a
// component registry and a service platform together but at the scale
// this core actually needs: no CLI flags, no NATS, no config file.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/inputcore/cell"
	"github.com/c360/inputcore/internal/testhost"
	"github.com/c360/inputcore/internal/testreader"
	"github.com/c360/inputcore/manager"
	"github.com/c360/inputcore/metrics"
	"github.com/c360/inputcore/reader"
	"github.com/c360/inputcore/schema"
)

const readerKindMemory reader.Kind = "memory"

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(); err != nil {
		slog.Error("demo failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	logger := manager.NewLogger(slog.Default())
	metricsReg := prometheus.NewRegistry()

	var rd *testreader.Reader
	registry := reader.NewRegistry()
	if err := registry.Register(&reader.Entry{
		Kind:    readerKindMemory,
		Name:    "in-memory demo reader",
		Factory: testreader.NewCaptured("memory:conns", &rd),
	}); err != nil {
		return err
	}

	store := testhost.NewStore()
	disp := testhost.NewDispatcher("conn_new")
	m := manager.New(registry, store, disp, logger, metrics.New(metricsReg))

	desc := manager.ReaderDescription{
		Reader:      readerKindMemory,
		Source:      "memory:conns",
		Idx:         connIdxType(),
		Val:         connValType(),
		Destination: testhost.NewTable(),
		WantRecord:  true,
	}
	if err := m.CreateReader("conns", desc); err != nil {
		return fmt.Errorf("create reader: %w", err)
	}
	m.RegisterEvent("conns", "conn_new")

	hostA := cell.Addr{10, 0, 0, 1}
	rd.QueueSnapshot([][]cell.Cell{
		{cell.NewAddr(hostA), cell.NewCount(1)},
	})
	if !m.ForceUpdate("conns") {
		return fmt.Errorf("first forced update failed")
	}
	slog.Info("snapshot complete", "stream", "conns", "rows", 1)

	// A second snapshot omitting hostA: it is reported Removed.
	rd.QueueSnapshot(nil)
	if !m.ForceUpdate("conns") {
		return fmt.Errorf("second forced update failed")
	}
	slog.Info("snapshot complete", "stream", "conns", "rows", 0)

	for _, ev := range disp.Events {
		slog.Info("event dispatched", "name", "conn_new", "tag", ev.Tag.String())
	}

	m.RemoveReader("conns")
	return nil
}

func connIdxType() schema.RecordType {
	return testhost.Record{FieldsValue: []schema.Field{testhost.Leaf("host", cell.KindAddr)}}
}

func connValType() schema.RecordType {
	return testhost.Record{FieldsValue: []schema.Field{testhost.Leaf("count", cell.KindCount)}}
}
