package telemetry

import (
	"encoding/json"
	"testing"
)

func TestFixPayload_MarshalsExpectedFields(t *testing.T) {
	p := FixPayload{
		UTC:       "2024-06-15T12:00:00Z",
		TimeValid: true,
		PosValid:  true,
		LatDeg:    47.285,
		LonDeg:    11.5167,
		AltM:      545,
		NumSat:    8,
	}
	b, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back map[string]any
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back["num_sat"].(float64) != 8 {
		t.Fatalf("num_sat = %v, want 8", back["num_sat"])
	}
	if !back["time_valid"].(bool) || !back["pos_valid"].(bool) {
		t.Fatalf("expected both validity flags true")
	}
}

func TestRefPayload_OmitsNothingRequired(t *testing.T) {
	r := RefPayload{CountUS: 5_000_000, UTC: "2024-06-15T12:00:05Z", XtalErrPPM: -1.2}
	b, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back map[string]any
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back["count_us"].(float64) != 5_000_000 {
		t.Fatalf("count_us = %v, want 5000000", back["count_us"])
	}
	if back["xtal_err_ppm"].(float64) != -1.2 {
		t.Fatalf("xtal_err_ppm = %v, want -1.2", back["xtal_err_ppm"])
	}
}
