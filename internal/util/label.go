// label.go provides a thread safe way of generating basic block labels for
// the code generator, adapted from the teacher's assembly label allocator
// (src/util/label.go) to Quadrate's LLVM basic block names instead of
// RISC-V/ARM jump targets.
package util

import "fmt"

// Label kinds for control-flow basic blocks.
const (
	LabelIfThen = iota
	LabelIfElse
	LabelIfEnd
	LabelForHead
	LabelForBody
	LabelForInc
	LabelForEnd
	LabelLoopHead
	LabelLoopEnd
	LabelSwitchCase
	LabelSwitchEnd
	LabelDeferEpilogue
	labelKindCount
)

var labelPrefixes = [labelKindCount]string{
	"if.then", "if.else", "if.end",
	"for.head", "for.body", "for.inc", "for.end",
	"loop.head", "loop.end",
	"switch.case", "switch.end",
	"defer.epilogue",
}

var cll chan string
var clr chan int
var clc chan struct{}

var labelIndices [labelKindCount]int

// ListenLabel starts the label allocator's request/response goroutine. Must
// be called once before the generator runs and matched with CloseLabel.
func ListenLabel() {
	cll = make(chan string)
	clr = make(chan int)
	clc = make(chan struct{})

	go func() {
		defer close(cll)
		for {
			select {
			case <-clc:
				return
			case kind := <-clr:
				if kind >= 0 && kind < labelKindCount {
					cll <- fmt.Sprintf("%s.%03d", labelPrefixes[kind], labelIndices[kind])
					labelIndices[kind]++
				} else {
					cll <- "label.error"
				}
			}
		}
	}()
}

// NewLabel returns a fresh, uniquely-numbered label name of the given kind.
func NewLabel(kind int) string {
	clr <- kind
	return <-cll
}

// CloseLabel stops the label allocator. Call once after code generation
// finishes, successfully or not.
func CloseLabel() {
	close(clc)
}
