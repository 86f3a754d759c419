// Package leaf classifies plant health from eleven sensor readings and ranks
// which readings the trained model relies on most.
//
// Quick start:
//
//	l, err := leaf.New(leaf.WithArtifact("models/plant_health.yaml"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer l.Close()
//
//	res, _ := l.Diagnose(leaf.Reading{"soil_moisture": 12, "ambient_temperature": 28.5})
//	fmt.Println(res.Label, res.Importance[0].Name) // High Stress Soil Moisture
//
// Readings not given take their documented defaults. A Leaf is safe for
// concurrent use; Reload swaps the artifact without interrupting callers.
package leaf
