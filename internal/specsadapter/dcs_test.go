package specsadapter

import "testing"

func TestParseDCSNoUpdatesIsShortForm(t *testing.T) {
	_, hasUpdates, err := ParseDCS([]byte(`{"has_updates": false}`))
	if err != nil {
		t.Fatal(err)
	}
	if hasUpdates {
		t.Error("expected has_updates=false to report no update")
	}
}

func TestParseDCSFullResponse(t *testing.T) {
	body := []byte(`{
		"has_updates": true,
		"time": 1700000000000,
		"checksum": "abc123",
		"feature_gates": {
			"test_gate": {"name":"test_gate","type":"feature_gate","rules":[]}
		},
		"sdk_keys_to_app_ids": {"secret-key":"app1"},
		"sdk_configs": {"max_retries": 3}
	}`)

	data, hasUpdates, err := ParseDCS(body)
	if err != nil {
		t.Fatal(err)
	}
	if !hasUpdates {
		t.Fatal("expected hasUpdates=true")
	}
	if data.Time != 1700000000000 {
		t.Errorf("unexpected LCUT: %d", data.Time)
	}
	if _, ok := data.FeatureGates["test_gate"]; !ok {
		t.Error("expected test_gate to be parsed")
	}
	if len(data.HashedSdkKeysToAppIDs) != 1 {
		t.Error("expected sdk key to be hashed into HashedSdkKeysToAppIDs")
	}
}

func TestRoundTripThroughCacheEncoding(t *testing.T) {
	body := []byte(`{"has_updates": true, "time": 42, "feature_gates": {}}`)
	data, _, err := ParseDCS(body)
	if err != nil {
		t.Fatal(err)
	}
	encoded, err := encodeDCSForCache(data)
	if err != nil {
		t.Fatal(err)
	}
	data2, hasUpdates, err := ParseDCS(encoded)
	if err != nil {
		t.Fatal(err)
	}
	if !hasUpdates || data2.Time != 42 {
		t.Errorf("round trip lost data: %+v", data2)
	}
}
