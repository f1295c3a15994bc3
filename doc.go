// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

// Package empower provides a simple, fluent API for driving a Waters Empower
// chromatography data system through its web API.
//
// The library handles session management (lazy login, re-login on 401),
// retries of transient errors with exponential backoff, JSON manipulation
// with gjson/sjson and editing of instrument methods.
//
// # Quick Start
//
//	client, err := empower.NewClient(
//	    "https://empower.example.com:3076",
//	    empower.Username("system"),
//	    empower.Password("secret"),
//	    empower.Project("Mobile"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	ctx := context.Background()
//	nodes, err := client.GetNodeNames(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println("Nodes:", nodes)
//
// # Instrument Methods
//
// An instrument method consists of modules, each carrying an xml blob with
// the instrument parameters. Parameters are read and changed by tag name:
//
//	method, err := client.GetInstrumentMethod(ctx, "Assay_Gradient_IM")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if sm, ok := method.Module(empower.SampleManagerFTN); ok {
//	    if err := sm.Set("ColumnTemperature", "45.0"); err != nil {
//	        log.Fatal(err)
//	    }
//	}
//	method.Name = "Assay_Gradient_IM_45C"
//	err = client.PostInstrumentMethod(ctx, method, empower.PostMethodOptions{
//	    AuditTrailComment: "column temperature 45 C",
//	})
//
// Edits are queued and applied to a copy of the xml; the module as received
// from the server never changes. Get and Set require the tag to occur exactly
// once. Use QueueReplace to substitute arbitrary text:
//
//	m := empower.NewMethod(map[string]string{"name": "rAcquityBSM", "xml": xml})
//	m.QueueReplace("<FlowRate>0.3</FlowRate>", "<FlowRate>0.4</FlowRate>")
//	current, err := m.Current()
//
// Module types are mapped to Method variants by a MethodFactory. The
// "rAcquityFTN" sample manager is a SampleManager with a column temperature
// accessor. More variants are registered with WithMethodType.
//
// # Sample Sets
//
//	err = client.PostExperiment(ctx, "Stability_T0",
//	    []empower.Sample{{"Method": "Assay", "SamplePos": "1:A,1", "SampleName": "T0", "InjectionVolume": 5}},
//	    map[string]string{"1": "ANSI-48Vial2mLHolder"},
//	    "created by LIMS")
//	err = client.RunExperiment(ctx, empower.RunRequest{
//	    SampleSetMethod: "Stability_T0",
//	    Node:            "HPLC-NODE-01",
//	    System:          "Acquity01",
//	})
//
// # Error Handling
//
// Failed API calls return *EmpowerError with the HTTP status and the number
// of retries. Instrument method edits return *MissingKeyError,
// *AmbiguousKeyError or *ConfigurationError:
//
//	var missing *empower.MissingKeyError
//	if errors.As(err, &missing) {
//	    fmt.Println("no such parameter:", missing.Key)
//	}
//
// # Thread Safety
//
// The Client is safe for concurrent use. Methods and instrument method
// definitions are not; use one per goroutine or lock externally.
//
// # References
//
//   - gjson: https://github.com/tidwall/gjson
//   - sjson: https://github.com/tidwall/sjson
package empower
