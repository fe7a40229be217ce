package analyzer

import (
	"fmt"

	"github.com/ludo-technologies/connscan/domain"
	"github.com/ludo-technologies/connscan/internal/parser"
)

const RuleTiming = "CON_TIMING"

// sleepCalls are callee names that block for a fixed duration. Qualified
// calls such as time.sleep or asyncio.sleep arrive as their last segment.
var sleepCalls = map[string]bool{
	"sleep":     true,
	"usleep":    true,
	"nanosleep": true,
}

// timingDetector flags connascence of timing: code that relies on waiting a
// fixed amount of time for something else to happen
type timingDetector struct{}

func newTimingDetector() *timingDetector { return &timingDetector{} }

func (d *timingDetector) Kind() Kind { return KindTiming }

func (d *timingDetector) Finish(*Context) {}

func (d *timingDetector) Visit(node *parser.Node, ctx *Context) {
	if node.Type != parser.NodeCall || !sleepCalls[node.Name] {
		return
	}
	ctx.report(finding{
		RuleID:         RuleTiming,
		Severity:       domain.SeverityMedium,
		Type:           domain.CoTiming,
		Node:           node,
		Description:    fmt.Sprintf("Sleep-based timing dependency: call to '%s'", node.Name),
		Recommendation: "Wait on an event, condition or future instead of a fixed delay",
	})
}
