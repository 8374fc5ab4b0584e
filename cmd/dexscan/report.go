package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/colorfulnotion/dexverify/common"
	"github.com/colorfulnotion/dexverify/dex"
	"github.com/colorfulnotion/dexverify/log"
	"github.com/colorfulnotion/dexverify/storage"
	"github.com/colorfulnotion/dexverify/verify"
	"github.com/colorfulnotion/dexverify/vfyerrors"
	"github.com/xlab/treeprint"
)

// decodeErrorCode marks a code item that could not be decoded at all.
const decodeErrorCode = "DEX"

// ManifestEntry names one method and its hex-encoded code_item.
type ManifestEntry struct {
	Class  string `json:"class"`
	Method string `json:"method"`
	Proto  string `json:"proto"`
	Code   string `json:"code"`
}

// MethodReport is the outcome for one method as printed by the CLI.
type MethodReport struct {
	Class        string                   `json:"class"`
	Method       string                   `json:"method"`
	Proto        string                   `json:"proto"`
	Hash         common.Hash              `json:"hash"`
	Accepted     bool                     `json:"accepted"`
	Cached       bool                     `json:"cached,omitempty"`
	Code         string                   `json:"code,omitempty"`
	Category     string                   `json:"category,omitempty"`
	Message      string                   `json:"message,omitempty"`
	Insns        int                      `json:"insns"`
	NewInstances int                      `json:"new_instances"`
	Stats        *verify.Stats            `json:"stats,omitempty"`
	Targets      []int                    `json:"branch_targets,omitempty"`
	Instructions []verify.InstructionInfo `json:"instructions,omitempty"`
	Tries        []dex.TryBlock           `json:"tries,omitempty"`
}

func (r *MethodReport) name() string {
	return fmt.Sprintf("%s.%s:%s", r.Class, r.Method, r.Proto)
}

// Report is the JSON document written by batch and read by diff.
type Report struct {
	Methods  []*MethodReport `json:"methods"`
	Accepted int             `json:"accepted"`
	Rejected int             `json:"rejected"`
}

func newReport(methods []*MethodReport) *Report {
	r := &Report{Methods: methods}
	for _, m := range methods {
		if m.Accepted {
			r.Accepted++
		} else {
			r.Rejected++
		}
	}
	return r
}

// analyzer turns manifest entries into reports, consulting the verdict store
// first. Cached verdicts carry no per-instruction detail.
type analyzer struct {
	cfg    verify.Config
	store  *storage.VerdictStore
	detail bool
}

func (a *analyzer) run(ctx context.Context, entries []ManifestEntry) ([]*MethodReport, error) {
	reports := make([]*MethodReport, len(entries))
	var pending []*dex.Method
	var pendingIdx []int

	for i, e := range entries {
		rep := &MethodReport{Class: e.Class, Method: e.Method, Proto: e.Proto}
		reports[i] = rep

		raw, err := common.DecodeHex(e.Code)
		if err != nil {
			a.rejectUndecodable(rep, fmt.Errorf("bad hex in code: %w", err))
			continue
		}
		rep.Hash = common.Blake2Hash(raw)

		if a.store != nil && !a.detail {
			v, ok, err := a.store.Get(rep.Hash)
			if err != nil {
				return nil, err
			}
			if ok {
				applyVerdict(rep, v)
				continue
			}
		}

		item, err := dex.ParseCodeItem(raw)
		if err != nil {
			a.rejectUndecodable(rep, err)
			continue
		}
		meth := item.Method(e.Class, e.Method, e.Proto)
		rep.Insns = len(meth.Insns)
		pending = append(pending, meth)
		pendingIdx = append(pendingIdx, i)
	}

	log.Debug(log.CLIMonitoring, "analyzing", "methods", len(entries), "uncached", len(pending))
	for j, res := range verify.AnalyzeMethods(ctx, pending, a.cfg) {
		rep := reports[pendingIdx[j]]
		a.merge(rep, res)
		if a.store != nil {
			if err := a.store.Put(rep.Hash, verdictOf(rep)); err != nil {
				return nil, err
			}
		}
	}
	return reports, nil
}

func (a *analyzer) rejectUndecodable(rep *MethodReport, err error) {
	rep.Code = decodeErrorCode
	rep.Category = "decode"
	rep.Message = err.Error()
	verify.LogVerifyFailure(&dex.Method{ClassDescriptor: rep.Class, Name: rep.Method, Proto: rep.Proto}, err)
}

func (a *analyzer) merge(rep *MethodReport, res verify.MethodResult) {
	if !res.Accepted() {
		rep.Code = vfyerrors.GetErrorCode(res.Err)
		rep.Category = vfyerrors.Category(res.Err)
		rep.Message = res.Err.Error()
		return
	}
	rep.Accepted = true
	rep.NewInstances = res.Result.NewInstanceCount
	if a.detail {
		rep.Stats = res.Result.Stats()
		rep.Targets = res.Result.BranchTargets()
		rep.Instructions = res.Result.Instructions()
		rep.Tries = res.Method.Tries
	}
}

func applyVerdict(rep *MethodReport, v *storage.Verdict) {
	rep.Cached = true
	rep.Accepted = v.Accepted
	rep.Code = v.Code
	rep.Message = v.Message
	rep.Insns = v.Insns
	rep.NewInstances = v.NewInstances
	switch v.Code {
	case "":
	case decodeErrorCode:
		rep.Category = "decode"
	default:
		rep.Category = vfyerrors.CodeCategory(v.Code)
	}
}

func verdictOf(rep *MethodReport) storage.Verdict {
	return storage.Verdict{
		Accepted:     rep.Accepted,
		Code:         rep.Code,
		Message:      rep.Message,
		Insns:        rep.Insns,
		NewInstances: rep.NewInstances,
	}
}

// writeText prints a one-line verdict per method.
func writeText(w io.Writer, rep *MethodReport) {
	cached := ""
	if rep.Cached {
		cached = common.ColorGray + " (cached)" + common.ColorReset
	}
	if rep.Accepted {
		fmt.Fprintf(w, "%sACCEPT%s %s insns=%d new-instances=%d%s\n",
			common.ColorGreen, common.ColorReset, rep.name(), rep.Insns, rep.NewInstances, cached)
		return
	}
	fmt.Fprintf(w, "%sREJECT%s %s [%s] %s%s\n",
		common.ColorRed, common.ColorReset, rep.name(), rep.Code, rep.Message, cached)
}

// buildTree renders the instruction layout of an accepted method.
func buildTree(rep *MethodReport) treeprint.Tree {
	tree := treeprint.New()
	tree.SetValue(rep.name())
	if !rep.Accepted {
		tree.AddNode(fmt.Sprintf("rejected [%s] %s", rep.Code, rep.Message))
		return tree
	}
	if rep.Stats != nil {
		tree.AddNode(fmt.Sprintf("%d instructions, %d payloads, %d branch targets, %d GC points",
			rep.Stats.InstructionCount, rep.Stats.PayloadCount, rep.Stats.BranchTargetCount, rep.Stats.GcPointCount))
	}

	insns := tree.AddBranch("instructions")
	for _, in := range rep.Instructions {
		insns.AddNode(fmt.Sprintf("0x%04x %-24s w=%d%s", in.Offset, in.Name, in.Width, insnMarks(in)))
	}

	if len(rep.Tries) > 0 {
		tries := tree.AddBranch("tries")
		for _, t := range rep.Tries {
			tb := tries.AddBranch(fmt.Sprintf("[0x%04x, 0x%04x)", t.StartAddr, t.EndAddr()))
			for _, h := range t.Handlers {
				if h.IsCatchAll() {
					tb.AddNode(fmt.Sprintf("catch-all -> 0x%04x", h.Addr))
				} else {
					tb.AddNode(fmt.Sprintf("type@%d -> 0x%04x", h.TypeIdx, h.Addr))
				}
			}
		}
	}
	return tree
}

func insnMarks(in verify.InstructionInfo) string {
	var marks []string
	if in.BranchTarget {
		marks = append(marks, "target")
	}
	if in.InTry {
		marks = append(marks, "try")
	}
	if in.GcPoint {
		marks = append(marks, "gc")
	}
	if len(marks) == 0 {
		return ""
	}
	return " " + strings.Join(marks, ",")
}
