/*
Package animator paces accumulated text into a smooth, monotonic reveal.

The server streams the full text received so far, not deltas. An Animator keeps
the visible prefix moving forward at a fixed rate, snaps instantly on resets,
and abandons an in-flight animation the moment a newer chunk arrives.

Frames are driven by a Scheduler: FrameScheduler uses real timers, ManualScheduler
advances a virtual clock for deterministic tests.
*/
package animator
