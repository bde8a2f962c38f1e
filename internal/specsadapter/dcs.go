package specsadapter

import (
	"encoding/json"

	"github.com/TimurManjosov/goflagship/internal/dynamicvalue"
	"github.com/TimurManjosov/goflagship/internal/hashing"
	"github.com/TimurManjosov/goflagship/internal/specs"
)

// dcsResponse mirrors spec.md §6's download_config_specs JSON shape.
type dcsResponse struct {
	HasUpdates           bool                      `json:"has_updates"`
	Time                 int64                     `json:"time"`
	Checksum             string                    `json:"checksum"`
	CompanyID            string                    `json:"company_id"`
	AppID                string                    `json:"app_id"`
	SdkKeysToAppIDs      map[string]string         `json:"sdk_keys_to_app_ids"`
	FeatureGates         map[string]specs.Spec      `json:"feature_gates"`
	DynamicConfigs       map[string]specs.Spec      `json:"dynamic_configs"`
	LayerConfigs         map[string]specs.Spec      `json:"layer_configs"`
	ConditionMap         map[string]specs.Condition `json:"condition_map"`
	ExperimentToLayer    map[string]string         `json:"experiment_to_layer"`
	SdkConfigs           map[string]json.RawMessage `json:"sdk_configs"`
	SdkFlags             map[string]bool           `json:"sdk_flags"`
	IDLists              map[string]bool           `json:"id_lists"`
	Diagnostics          map[string]uint64         `json:"diagnostics"`
	SessionReplayInfo    map[string]any            `json:"session_replay_info"`
	CmabConfigs          map[string]any            `json:"cmab_configs"`
}

// ParseDCS decodes a download_config_specs JSON response into specs.Data.
// has_updates=false is reported via the returned bool so callers can leave
// the store's existing snapshot untouched, per spec.md §4.1.
func ParseDCS(body []byte) (specs.Data, bool, error) {
	var r dcsResponse
	if err := json.Unmarshal(body, &r); err != nil {
		return specs.Data{}, false, err
	}
	if !r.HasUpdates {
		return specs.Data{}, false, nil
	}

	data := specs.Empty()
	data.Time = r.Time
	data.Checksum = r.Checksum
	data.CompanyID = r.CompanyID
	data.AppID = r.AppID
	data.SdkKeysToAppIDs = r.SdkKeysToAppIDs
	data.FeatureGates = r.FeatureGates
	data.DynamicConfigs = r.DynamicConfigs
	data.LayerConfigs = r.LayerConfigs
	data.ConditionMap = r.ConditionMap
	data.ExperimentToLayer = r.ExperimentToLayer
	data.SdkFlags = r.SdkFlags
	data.IDLists = r.IDLists
	data.Diagnostics = r.Diagnostics
	data.SessionReplayInfo = r.SessionReplayInfo
	data.CmabConfigs = r.CmabConfigs

	data.SdkConfigs = make(map[string]dynamicvalue.Value, len(r.SdkConfigs))
	for k, raw := range r.SdkConfigs {
		v, err := dynamicvalue.FromRawJSON(raw)
		if err != nil {
			continue
		}
		data.SdkConfigs[k] = v
	}

	data.HashedSdkKeysToAppIDs = make(map[uint64]string, len(r.SdkKeysToAppIDs))
	for key, appID := range r.SdkKeysToAppIDs {
		data.HashedSdkKeysToAppIDs[hashing.DJB2(key)] = appID
	}

	return data, true, nil
}

// encodeDCSForCache re-serializes a specs.Data back into the DCS wire shape,
// for the FileAdapter's on-disk cache.
func encodeDCSForCache(data specs.Data) ([]byte, error) {
	sdkConfigs := make(map[string]json.RawMessage, len(data.SdkConfigs))
	for k, v := range data.SdkConfigs {
		raw, err := v.MarshalJSON()
		if err != nil {
			return nil, err
		}
		sdkConfigs[k] = raw
	}

	return json.Marshal(dcsResponse{
		HasUpdates:        true,
		Time:              data.Time,
		Checksum:          data.Checksum,
		CompanyID:         data.CompanyID,
		AppID:             data.AppID,
		SdkKeysToAppIDs:   data.SdkKeysToAppIDs,
		FeatureGates:      data.FeatureGates,
		DynamicConfigs:    data.DynamicConfigs,
		LayerConfigs:      data.LayerConfigs,
		ConditionMap:      data.ConditionMap,
		ExperimentToLayer: data.ExperimentToLayer,
		SdkConfigs:        sdkConfigs,
		SdkFlags:          data.SdkFlags,
		IDLists:           data.IDLists,
		Diagnostics:       data.Diagnostics,
		SessionReplayInfo: data.SessionReplayInfo,
		CmabConfigs:       data.CmabConfigs,
	})
}
