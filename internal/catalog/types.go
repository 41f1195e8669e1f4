package catalog

import "strings"

// FieldType is how a sacct column is typed during ingestion.
type FieldType int

const (
	// String cells are kept as text.
	String FieldType = iota
	// Numeric cells are parsed as numbers.
	Numeric
	// RawSeconds cells are numeric second counts (the *RAW duration fields).
	RawSeconds
	// Composite cells use the [[D-]H:]M:S[.f] duration encoding.
	Composite
	// Timestamp cells are ISO dates; sacct also emits "Unknown" and "None",
	// so they are kept as text.
	Timestamp
)

func (t FieldType) String() string {
	switch t {
	case Numeric:
		return "numeric"
	case RawSeconds:
		return "raw-seconds"
	case Composite:
		return "duration"
	case Timestamp:
		return "timestamp"
	default:
		return "string"
	}
}

// Field names are matched case-insensitively, as sacct itself does.
var fieldTypes = map[string]FieldType{
	// Counts and ids
	"alloccpus":     Numeric,
	"allocnodes":    Numeric,
	"associd":       Numeric,
	"gid":           Numeric,
	"ncpus":         Numeric,
	"nnodes":        Numeric,
	"priority":      Numeric,
	"qosraw":        Numeric,
	"reqcpus":       Numeric,
	"reqnodes":      Numeric,
	"reservationid": Numeric,
	"uid":           Numeric,
	"wckeyid":       Numeric,
	"ntasks":        Numeric,

	// Durations as plain seconds
	"cputimeraw":    RawSeconds,
	"elapsedraw":    RawSeconds,
	"resvcpuraw":    RawSeconds,
	"reservedraw":   RawSeconds,
	"plannedcpuraw": RawSeconds,
	"plannedraw":    RawSeconds,

	// Durations in the Slurm encoding. Timelimit is deliberately absent, it
	// may read "UNLIMITED" or "Partition_Limit".
	"totalcpu":   Composite,
	"usercpu":    Composite,
	"systemcpu":  Composite,
	"cputime":    Composite,
	"elapsed":    Composite,
	"avecpu":     Composite,
	"mincpu":     Composite,
	"suspended":  Composite,
	"reserved":   Composite,
	"planned":    Composite,
	"plannedcpu": Composite,
	"resvcpu":    Composite,

	"submit":   Timestamp,
	"start":    Timestamp,
	"end":      Timestamp,
	"eligible": Timestamp,
}

// TypeOf returns the ingestion type of a field. Unknown fields are String.
func TypeOf(field string) FieldType {
	if t, ok := fieldTypes[strings.ToLower(field)]; ok {
		return t
	}
	return String
}
