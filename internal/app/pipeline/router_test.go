package pipeline

import (
	"errors"
	"strings"
	"testing"

	"github.com/network-observability/network-observability-lab/internal/domain"
	"github.com/network-observability/network-observability-lab/internal/lineproto"
	"github.com/network-observability/network-observability-lab/internal/ports"
	"github.com/network-observability/network-observability-lab/internal/stages"
)

func mustRoute(t *testing.T, cfgs []stages.Config, line string) *domain.Sample {
	t.Helper()
	built, err := stages.Build(cfgs)
	if err != nil {
		t.Fatalf("build stages: %v", err)
	}
	s, err := lineproto.Parse(line)
	if err != nil {
		t.Fatalf("parse %q: %v", line, err)
	}
	out, err := NewRouter(built, &mockObs{}).Route(s)
	if err != nil {
		t.Fatalf("route: %v", err)
	}
	return out
}

func TestRouteRenamesInterfaceCounters(t *testing.T) {
	cfgs := []stages.Config{{
		Name:   "intf-counters",
		Kind:   stages.KindRename,
		Order:  10,
		Filter: stages.Filter{NamePass: []string{"intf"}},
		Rename: &stages.RenameConfig{Rules: []stages.RenameRule{
			{Kind: stages.RenameField, From: "in_crc_errors", To: "in_fcs_errors"},
			{Kind: stages.RenameField, From: "in_errors", To: "in_errors_pkts"},
			{Kind: stages.RenameField, From: "in_discards", To: "in_discards_pkts"},
		}},
	}}

	out := mustRoute(t, cfgs,
		"intf,device=ceos-01,name=Ethernet1 in_crc_errors=0i,in_errors=2i,in_discards=1i 1700000000000000000")

	want := "intf,device=ceos-01,name=Ethernet1 in_discards_pkts=1i,in_errors_pkts=2i,in_fcs_errors=0i 1700000000000000000"
	if got := lineproto.Serialize(out); got != want {
		t.Fatalf("unexpected output line:\n got %s\nwant %s", got, want)
	}
}

func TestRouteComputesStorageUtilization(t *testing.T) {
	cfgs := []stages.Config{{
		Name:   "storage-util",
		Kind:   stages.KindDerived,
		Order:  10,
		Filter: stages.Filter{NamePass: []string{"storage"}},
		Derived: &stages.DerivedFieldNames{
			Size:  "size_allocation_units",
			Alloc: "allocation_units",
			Used:  "used_allocation_units",
		},
	}}

	out := mustRoute(t, cfgs,
		"storage,device=nas-01,name=/var size_allocation_units=1000i,allocation_units=1024i,used_allocation_units=400i")

	if out == nil {
		t.Fatalf("expected sample to survive")
	}
	if got := out.Fields["total"]; got != float64(1024000) {
		t.Fatalf("expected total 1024000, got %v", got)
	}
	if got := out.Fields["used_percent"]; got != float64(40) {
		t.Fatalf("expected used_percent 40, got %v", got)
	}
	if got := out.Fields["free_percent"]; got != float64(60) {
		t.Fatalf("expected free_percent 60, got %v", got)
	}
	for _, raw := range []string{"size_allocation_units", "allocation_units", "used_allocation_units"} {
		if _, ok := out.Fields[raw]; ok {
			t.Fatalf("expected raw field %s to be removed", raw)
		}
	}
}

func TestRouteEnrichesInterfaceRole(t *testing.T) {
	cfgs := []stages.Config{{
		Name:   "intf-role",
		Kind:   stages.KindRegexEnrich,
		Order:  10,
		Filter: stages.Filter{NamePass: []string{"intf"}},
		RegexEnrich: &stages.RegexEnrichConfig{Rules: []stages.EnrichRule{
			{SourceTag: "intf_name", Pattern: "^Ethernet.*$", NewTag: "intf_role", Replacement: "peer"},
			{SourceTag: "intf_name", Pattern: "^Management.*$", NewTag: "intf_role", Replacement: "mgmt"},
		}},
	}}

	out := mustRoute(t, cfgs, "intf,device=ceos-01,intf_name=Ethernet1 in_octets=100i")
	if out.Tags["intf_role"] != "peer" {
		t.Fatalf("expected intf_role peer, got %q", out.Tags["intf_role"])
	}

	out = mustRoute(t, cfgs, "intf,device=ceos-01,intf_name=Management0 in_octets=100i")
	if out.Tags["intf_role"] != "mgmt" {
		t.Fatalf("expected intf_role mgmt, got %q", out.Tags["intf_role"])
	}
}

func TestRouteMapsOperStatusEnum(t *testing.T) {
	cfgs := []stages.Config{{
		Name:   "oper-status",
		Kind:   stages.KindEnum,
		Order:  10,
		Filter: stages.Filter{NamePass: []string{"intf"}},
		Enum: &stages.EnumConfig{
			Target:  stages.EnumField,
			Name:    "oper_status",
			Mapping: map[string]interface{}{"UP": 1, "DOWN": 2},
		},
	}}

	out := mustRoute(t, cfgs, `intf,device=ceos-01 oper_status="UP"`)
	if got := out.Fields["oper_status"]; got != int64(1) {
		t.Fatalf("expected oper_status 1, got %v (%T)", got, got)
	}

	// Unknown symbols pass through untouched.
	out = mustRoute(t, cfgs, `intf,device=ceos-01 oper_status="TESTING"`)
	if got := out.Fields["oper_status"]; got != "TESTING" {
		t.Fatalf("expected oper_status TESTING, got %v", got)
	}
}

func TestRouteIsDeterministic(t *testing.T) {
	// The same line routed through the same stage list must serialize
	// identically on every pass; stages may not carry state between samples.
	cfgs := []stages.Config{
		{
			Name:  "relabel",
			Kind:  stages.KindRename,
			Order: 10,
			Rename: &stages.RenameConfig{Rules: []stages.RenameRule{
				{Kind: stages.RenameTag, From: "name", To: "volume"},
			}},
		},
		{
			Name:  "health",
			Kind:  stages.KindEnum,
			Order: 20,
			Enum: &stages.EnumConfig{
				Target:  stages.EnumField,
				Name:    "status",
				Mapping: map[string]interface{}{"OK": 1, "FAILED": 2},
			},
		},
		{
			Name:  "utilization",
			Kind:  stages.KindDerived,
			Order: 30,
		},
		{
			Name:  "tier",
			Kind:  stages.KindRegexEnrich,
			Order: 40,
			RegexEnrich: &stages.RegexEnrichConfig{Rules: []stages.EnrichRule{
				{SourceTag: "volume", Pattern: "^/var.*$", NewTag: "tier", Replacement: "data"},
			}},
		},
	}
	built, err := stages.Build(cfgs)
	if err != nil {
		t.Fatalf("build stages: %v", err)
	}
	router := NewRouter(built, &mockObs{})

	const line = `storage,device=nas-01,name=/var/log size_units=1000i,alloc_units=1024i,used_units=400i,status="OK" 1700000000000000000`

	var outputs []string
	for i := 0; i < 2; i++ {
		s, err := lineproto.Parse(line)
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		out, err := router.Route(s)
		if err != nil {
			t.Fatalf("route pass %d: %v", i, err)
		}
		if out == nil {
			t.Fatalf("pass %d dropped the sample", i)
		}
		outputs = append(outputs, lineproto.Serialize(out))
	}
	if outputs[0] != outputs[1] {
		t.Fatalf("routing is not deterministic:\nfirst  %s\nsecond %s", outputs[0], outputs[1])
	}

	// Pass-through branches (unmapped enum symbol, missing derived inputs,
	// unmatched enrich tag) must leave the input sample untouched.
	passThrough, err := lineproto.Parse(`intf,device=ceos-01 status="UNKNOWN",v=1i 1700000000000000000`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	before := lineproto.Serialize(passThrough.Clone())
	out, err := router.Route(passThrough)
	if err != nil {
		t.Fatalf("route: %v", err)
	}
	if out == nil {
		t.Fatalf("expected pass-through sample to survive")
	}
	if got := lineproto.Serialize(passThrough); got != before {
		t.Fatalf("input sample mutated on pass-through:\nbefore %s\nafter  %s", before, got)
	}
}

func TestRouteStagesChainInOrder(t *testing.T) {
	// rename produces the tag the enrich stage reads; lower order runs first.
	cfgs := []stages.Config{
		{
			Name:  "role",
			Kind:  stages.KindRegexEnrich,
			Order: 20,
			RegexEnrich: &stages.RegexEnrichConfig{Rules: []stages.EnrichRule{
				{SourceTag: "intf_name", Pattern: "^Ethernet.*$", NewTag: "intf_role", Replacement: "peer"},
			}},
		},
		{
			Name:  "relabel",
			Kind:  stages.KindRename,
			Order: 10,
			Rename: &stages.RenameConfig{Rules: []stages.RenameRule{
				{Kind: stages.RenameTag, From: "name", To: "intf_name"},
			}},
		},
	}

	out := mustRoute(t, cfgs, "intf,name=Ethernet1 v=1i")
	if out.Tags["intf_role"] != "peer" {
		t.Fatalf("expected rename to run before enrich, tags=%+v", out.Tags)
	}
}

func TestRouteSkipsFilteredStages(t *testing.T) {
	cfgs := []stages.Config{{
		Name:   "storage-only",
		Kind:   stages.KindDerived,
		Filter: stages.Filter{NamePass: []string{"storage"}},
	}}

	// A bgp sample without the derived inputs passes untouched.
	out := mustRoute(t, cfgs, "bgp,peer=10.0.0.1 prefixes=42i")
	if out == nil || out.Fields["prefixes"] != int64(42) {
		t.Fatalf("expected filtered stage to be skipped, got %+v", out)
	}
}

func TestRouteRecordsDropCause(t *testing.T) {
	built, err := stages.Build([]stages.Config{{
		Name: "storage-util",
		Kind: stages.KindDerived,
	}})
	if err != nil {
		t.Fatalf("build stages: %v", err)
	}
	obs := &mockObs{}

	s, err := lineproto.Parse("storage size_units=0i,alloc_units=1024i,used_units=10i")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	out, err := NewRouter(built, obs).Route(s)
	if err != nil {
		t.Fatalf("route: %v", err)
	}
	if out != nil {
		t.Fatalf("expected sample to be dropped")
	}
	drops := obs.dropsFor("storage-util")
	if drops["zero_total"] != 1 {
		t.Fatalf("expected zero_total drop, got %+v", drops)
	}
}

func TestRouteWrapsStageErrors(t *testing.T) {
	boom := errors.New("boom")
	router := NewRouter([]ports.Stage{&failingStage{err: boom}}, &mockObs{})

	_, err := router.Route(domain.New("intf"))
	if err == nil || !errors.Is(err, boom) {
		t.Fatalf("expected wrapped stage error, got %v", err)
	}
	if !strings.Contains(err.Error(), "stage exploder") {
		t.Fatalf("expected error to name the stage, got %v", err)
	}
}

type failingStage struct {
	err error
}

func (f *failingStage) Name() string                  { return "exploder" }
func (f *failingStage) Order() int                    { return 0 }
func (f *failingStage) Match(*domain.Sample) bool     { return true }
func (f *failingStage) Apply(*domain.Sample) (*domain.Sample, error) {
	return nil, f.err
}
