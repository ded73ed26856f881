// Package hk provides a mechanism for driving periodic processing, such
// as mesh.Mesh.Process, on a fixed interval.
/*
 * Copyright (c) 2026, Ribbonmesh Authors. All rights reserved.
 */
package hk_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/ribbonmesh/core/hk"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

func TestHousekeeper(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, t.Name())
}

var _ = Describe("Runner", func() {
	It("ticks f repeatedly until Stop", func() {
		var count int32
		r := hk.New(5*time.Millisecond, func(now uint32) {
			atomic.AddInt32(&count, 1)
		})
		go r.Run()
		r.WaitStarted()

		Eventually(func() int32 { return atomic.LoadInt32(&count) }, time.Second, 5*time.Millisecond).
			Should(BeNumerically(">=", 2))

		r.Stop()
		after := atomic.LoadInt32(&count)
		time.Sleep(20 * time.Millisecond)
		Expect(atomic.LoadInt32(&count)).To(Equal(after))
	})

	It("passes a nonzero Unix-seconds clock to f", func() {
		done := make(chan uint32, 1)
		r := hk.New(5*time.Millisecond, func(now uint32) {
			select {
			case done <- now:
			default:
			}
		})
		go r.Run()
		r.WaitStarted()

		var now uint32
		Eventually(done, time.Second).Should(Receive(&now))
		r.Stop()
		Expect(now).NotTo(BeZero())
	})
})
