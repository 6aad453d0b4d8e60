package main

import (
	"context"
	"net"
	"sensorlink/internal/protocol"
	"testing"
	"time"
)

func receiveAll(t *testing.T, pc net.PacketConn) []protocol.Kind {
	t.Helper()
	var kinds []protocol.Kind
	buf := make([]byte, 4096)
	for {
		pc.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
		n, _, err := pc.ReadFrom(buf)
		if err != nil {
			return kinds
		}
		kind, _ := protocol.Classify(buf[:n])
		kinds = append(kinds, kind)
	}
}

func TestRun_SendsFramedLines(t *testing.T) {
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	defer pc.Close()

	conn, err := net.Dial("udp", pc.LocalAddr().String())
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()

	opts := options{width: 4, height: 3, fps: 1000, frames: 2, markerSize: 8, seed: 1}
	frames, dropped, err := run(context.Background(), conn, opts)
	if err != nil || frames != 2 || dropped != 0 {
		t.Fatalf("run = %d frames, %d dropped, %v", frames, dropped, err)
	}

	kinds := receiveAll(t, pc)
	want := []protocol.Kind{
		protocol.KindStart, protocol.KindLine, protocol.KindLine, protocol.KindLine, protocol.KindEnd,
		protocol.KindStart, protocol.KindLine, protocol.KindLine, protocol.KindLine, protocol.KindEnd,
	}
	if len(kinds) != len(want) {
		t.Fatalf("Received %d datagrams, expected %d", len(kinds), len(want))
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("Datagram %d is %v, expected %v", i, kinds[i], want[i])
		}
	}
}

func TestRun_LossDropsEveryLine(t *testing.T) {
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	defer pc.Close()

	conn, err := net.Dial("udp", pc.LocalAddr().String())
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()

	opts := options{width: 4, height: 5, fps: 1000, frames: 1, loss: 1, markerSize: 8, seed: 1}
	_, dropped, err := run(context.Background(), conn, opts)
	if err != nil || dropped != 5 {
		t.Fatalf("run dropped %d lines, %v", dropped, err)
	}

	kinds := receiveAll(t, pc)
	if len(kinds) != 2 || kinds[0] != protocol.KindStart || kinds[1] != protocol.KindEnd {
		t.Errorf("Expected only markers, got %v", kinds)
	}
}
