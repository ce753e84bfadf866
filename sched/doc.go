// Package sched
// Author: momentics <momentics@gmail.com>
//
// Core of the lightweight-kernel (LWK) companion scheduler. A subset
// of CPUs is ceded to an LWK process; this package owns their run
// queues, the commit accounting behind placement, the clone-time
// placement engine, the assimilation/give-back protocol and the idle
// driver. Everything else — context switching, task control blocks,
// topology discovery, low-power instruction issue — belongs to the
// host and is reached through narrow interfaces.
//
// Locking follows the host contract: the per-CPU run-queue lock is
// acquired by the host before any enqueue/dequeue/pick hook; commit
// counters take their own per-CPU lock only across read-modify-write;
// exclusive reservations are a single CAS word.
package sched
