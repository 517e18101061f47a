package main

import (
	"encoding/json"
	"fmt"
	"time"

	"mcpdrift/internal/domain"
	"mcpdrift/internal/infra/baselinestore"
)

func writeJSON(value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func printProbeResult(baselines []domain.Baseline, keys []string, jsonOutput bool) error {
	if jsonOutput {
		entries := make([]map[string]any, 0, len(baselines))
		for i, baseline := range baselines {
			entries = append(entries, map[string]any{
				"key":     keys[i],
				"hash":    baseline.Hash,
				"tools":   baseline.Summary.ToolCount,
				"session": baseline.Metadata.SessionID,
			})
		}
		return writeJSON(map[string]any{"baselines": entries})
	}
	for i, baseline := range baselines {
		fmt.Printf("key=%s hash=%s tools=%d\n", keys[i], baseline.Hash, baseline.Summary.ToolCount)
	}
	return nil
}

func printDiff(diff domain.Diff, jsonOutput bool) error {
	if jsonOutput {
		return writeJSON(diff)
	}
	fmt.Printf("severity=%s added=%d removed=%d modified=%d\n",
		diff.Severity, len(diff.ToolsAdded), len(diff.ToolsRemoved), len(diff.ToolsModified))
	for _, name := range diff.ToolsAdded {
		fmt.Printf("+ %s\n", name)
	}
	for _, name := range diff.ToolsRemoved {
		fmt.Printf("- %s\n", name)
	}
	for _, modified := range diff.ToolsModified {
		fmt.Printf("~ %s\n", modified.Tool)
		for _, change := range modified.Changes {
			fmt.Printf("    %s [%s]: %s -> %s\n", change.Field, change.Severity, change.Previous, change.Current)
		}
	}
	return nil
}

func printAccepted(key string, baseline domain.Baseline, diff domain.Diff, jsonOutput bool) error {
	if jsonOutput {
		return writeJSON(map[string]any{
			"key":        key,
			"hash":       baseline.Hash,
			"severity":   diff.Severity,
			"acceptance": baseline.Acceptance,
		})
	}
	fmt.Printf("accepted key=%s severity=%s digest=%s\n", key, diff.Severity, baseline.Acceptance.DiffDigest)
	return nil
}

func printBaselineList(infos []baselinestore.BaselineInfo, jsonOutput bool) error {
	if jsonOutput {
		entries := make([]map[string]any, 0, len(infos))
		for _, info := range infos {
			entries = append(entries, map[string]any{
				"key":         info.Key,
				"version":     info.Version,
				"format":      formatStatus(info.Version),
				"generatedAt": info.GeneratedAt,
				"hash":        info.Hash,
				"tools":       info.ToolCount,
				"accepted":    info.Accepted,
			})
		}
		return writeJSON(map[string]any{"baselines": entries})
	}
	for _, info := range infos {
		marker := ""
		if info.Accepted {
			marker = " accepted"
		}
		fmt.Printf("%s\t%s\tv%s (%s)\ttools=%d%s\n",
			info.Key, info.GeneratedAt.Format(time.RFC3339), info.Version,
			formatStatus(info.Version), info.ToolCount, marker)
	}
	return nil
}
