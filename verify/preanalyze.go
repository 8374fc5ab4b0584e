package verify

import (
	"context"

	"github.com/colorfulnotion/dexverify/dex"
	"github.com/colorfulnotion/dexverify/log"
	"github.com/colorfulnotion/dexverify/vfyerrors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/colorfulnotion/dexverify/verify"

// Stats summarises a method's pre-analysis.
type Stats struct {
	InstructionCount   int                `json:"instructions"`
	PayloadCount       int                `json:"payloads"`
	BranchTargetCount  int                `json:"branch_targets"`
	InTryUnits         int                `json:"in_try_units"`
	GcPointCount       int                `json:"gc_points"`
	OpcodeDistribution map[dex.Opcode]int `json:"-"`
}

// Result is the outcome of PreAnalyze for one accepted method.
type Result struct {
	Method           *dex.Method
	Flags            FlagTable
	NewInstanceCount int
}

// InstructionInfo describes one instruction start.
type InstructionInfo struct {
	Offset       int        `json:"offset"`
	Width        int        `json:"width"`
	Opcode       dex.Opcode `json:"-"`
	Name         string     `json:"name"`
	Payload      bool       `json:"payload,omitempty"`
	InTry        bool       `json:"in_try,omitempty"`
	BranchTarget bool       `json:"branch_target,omitempty"`
	GcPoint      bool       `json:"gc_point,omitempty"`
}

// PreAnalyze runs the control-flow pre-analysis passes over meth: widths,
// try flags, branch and switch targets, array data tables and optionally GC
// points. The first failure rejects the method.
func PreAnalyze(ctx context.Context, meth *dex.Method, cfg Config) (*Result, error) {
	_, span := otel.Tracer(tracerName).Start(ctx, "verify.PreAnalyze",
		trace.WithAttributes(
			attribute.String("method", meth.String()),
			attribute.Int("insns", len(meth.Insns)),
			attribute.Int("tries", len(meth.Tries)),
		))
	defer span.End()

	res, err := preAnalyze(meth, cfg)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, vfyerrors.GetErrorCodeWithName(err))
		return nil, err
	}
	span.SetAttributes(attribute.Int("new_instances", res.NewInstanceCount))
	return res, nil
}

func preAnalyze(meth *dex.Method, cfg Config) (*Result, error) {
	flags := NewFlagTable(len(meth.Insns))

	newInstanceCount, err := ComputeCodeWidths(meth, flags)
	if err != nil {
		return nil, err
	}
	if err := SetTryFlags(meth, flags); err != nil {
		return nil, err
	}

	// the method entry is always a branch target
	flags.SetBranchTarget(0, true)

	insns := meth.Insns
	for off := 0; off < len(insns); off = flags.NextOpcode(off) {
		if dex.IsPayloadSignature(insns[off]) {
			continue
		}
		op := dex.DecodeOpcode(insns[off])
		switch {
		case dex.IsBranch(op):
			// goto/32 is the only branch that may target itself
			if err := CheckBranchTarget(meth, flags, off, op == dex.GOTO_32); err != nil {
				return nil, err
			}
		case dex.IsSwitch(op):
			if err := CheckSwitchTargets(meth, flags, off); err != nil {
				return nil, err
			}
		case op == dex.FILL_ARRAY_DATA:
			if err := CheckArrayData(meth, flags, off); err != nil {
				return nil, err
			}
		}
	}

	if cfg.GenerateGcPoints {
		markGcPoints(meth, flags)
	}

	log.Debug(log.ScanMonitoring, "pre-analysis done", "method", meth.String(), "units", len(insns), "newInstances", newInstanceCount)
	return &Result{Method: meth, Flags: flags, NewInstanceCount: newInstanceCount}, nil
}

const gcPointFlags = dex.CanBranch | dex.CanSwitch | dex.CanThrow | dex.CanReturn

// markGcPoints flags every branch target and every instruction that can
// leave the straight-line path.
func markGcPoints(meth *dex.Method, flags FlagTable) {
	for off := 0; off < len(flags); off = flags.NextOpcode(off) {
		if flags.IsBranchTarget(off) {
			flags.SetGcPoint(off, true)
			continue
		}
		if dex.IsPayloadSignature(meth.Insns[off]) {
			continue
		}
		if dex.OpcodeFlags(dex.DecodeOpcode(meth.Insns[off]))&gcPointFlags != 0 {
			flags.SetGcPoint(off, true)
		}
	}
}

// Stats walks the flag table and counts instructions and flags.
func (r *Result) Stats() *Stats {
	stats := &Stats{
		OpcodeDistribution: make(map[dex.Opcode]int),
	}
	for i, f := range r.Flags {
		if f.InTry() {
			stats.InTryUnits++
		}
		if !f.IsOpcode() {
			continue
		}
		if dex.IsPayloadSignature(r.Method.Insns[i]) {
			stats.PayloadCount++
		} else {
			stats.InstructionCount++
			stats.OpcodeDistribution[dex.DecodeOpcode(r.Method.Insns[i])]++
		}
		if f.IsBranchTarget() {
			stats.BranchTargetCount++
		}
		if f.IsGcPoint() {
			stats.GcPointCount++
		}
	}
	return stats
}

// Instructions lists every instruction start in address order.
func (r *Result) Instructions() []InstructionInfo {
	var instructions []InstructionInfo
	for i, f := range r.Flags {
		if !f.IsOpcode() {
			continue
		}
		op := dex.DecodeOpcode(r.Method.Insns[i])
		info := InstructionInfo{
			Offset:       i,
			Width:        f.Width(),
			Opcode:       op,
			Name:         op.String(),
			InTry:        f.InTry(),
			BranchTarget: f.IsBranchTarget(),
			GcPoint:      f.IsGcPoint(),
		}
		if dex.IsPayloadSignature(r.Method.Insns[i]) {
			info.Payload = true
			info.Name = payloadName(r.Method.Insns[i])
		}
		instructions = append(instructions, info)
	}
	return instructions
}

// BranchTargets returns the addresses flagged as branch targets.
func (r *Result) BranchTargets() []int {
	var targets []int
	for i, f := range r.Flags {
		if f.IsBranchTarget() {
			targets = append(targets, i)
		}
	}
	return targets
}

func payloadName(unit uint16) string {
	switch unit {
	case dex.PackedSwitchSignature:
		return "packed-switch-payload"
	case dex.SparseSwitchSignature:
		return "sparse-switch-payload"
	default:
		return "array-data-payload"
	}
}
