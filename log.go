package rtmsim

import (
	"fmt"
	"io"
)

// Log returns a StepObserver that prints one progress line per
// completed step, following the teacher's run.go Log(io.Writer)
// DomainManipulator idiom: plain fmt.Fprintf, no structured logging
// library, because that is what the teacher's own core package does.
func Log(w io.Writer) StepObserver {
	return func(step int, t, dt float64, nCells int) {
		fmt.Fprintf(w, "step %6d: t=%.6g dt=%.6g cells=%d\n", step, t, dt, nCells)
	}
}
