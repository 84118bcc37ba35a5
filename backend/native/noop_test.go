// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package native

import (
	"testing"
	"time"

	"github.com/gogpu/engine/gpucore"
)

func TestNoopDeviceRecordsAndSubmits(t *testing.T) {
	d, err := OpenNoop()
	if err != nil {
		t.Fatalf("OpenNoop failed: %v", err)
	}
	defer d.Destroy()

	if d.HalDevice() == nil || d.HalQueue() == nil {
		t.Fatal("noop device exposes no HAL objects")
	}

	q := d.Queue()
	fence, err := q.CreateFence()
	if err != nil {
		t.Fatalf("CreateFence failed: %v", err)
	}
	defer q.DestroyFence(fence)

	na, err := d.CreateCommandAllocator(gpucore.ListTypeDirect)
	if err != nil {
		t.Fatalf("CreateCommandAllocator failed: %v", err)
	}
	defer na.Release()
	nl, err := d.CreateCommandList(gpucore.ListTypeDirect, na, nil)
	if err != nil {
		t.Fatalf("CreateCommandList failed: %v", err)
	}
	defer nl.Release()
	if err := nl.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := q.Submit([]gpucore.NativeList{nl}, fence, 1); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	ok, err := fence.Wait(1, time.Second)
	if err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	if ok && fence.CompletedValue() < 1 {
		t.Errorf("CompletedValue = %d after a successful wait", fence.CompletedValue())
	}
}
