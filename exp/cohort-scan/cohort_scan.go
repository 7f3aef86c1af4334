// cohort-scan drives omicsctl over a grid of synthetic cohorts: generate a
// cohort per seed, then run the burden, diversity and correlation analyses on
// each, leaving one report per (seed, analysis) under results/.
//
// Build omicsctl first: go build -o bin/omicsctl ./cmd/omicsctl
package main

import (
	"fmt"

	sp "github.com/scipipe/scipipe"
)

const omicsctl = "bin/omicsctl"

func main() {
	sp.InitLogInfo()

	wf := sp.NewWorkflow("cohort_scan", 4)

	for _, seed := range []int{42, 43, 44} {
		tag := fmt.Sprintf("seed%d", seed)
		dataDir := "data/" + tag

		gen := wf.NewProc("generate_"+tag, fmt.Sprintf(
			"%s demo --seed %d --out %s && echo done > {o:done}",
			omicsctl, seed, dataDir))
		gen.SetOut("done", dataDir+"/done.flag")

		mutations := dataDir + "/mutations.csv"
		abundance := dataDir + "/abundance.csv"
		immune := dataDir + "/immune.csv"
		groups := dataDir + "/groups.csv"

		burdenScan := wf.NewProc("burden_"+tag, fmt.Sprintf(
			"%s burden --matrix %s --groups %s --out {o:table} --pairs {o:pairs} # {i:done}",
			omicsctl, mutations, groups))
		burdenScan.SetOut("table", "results/"+tag+"/burden.csv")
		burdenScan.SetOut("pairs", "results/"+tag+"/pairs.csv")
		burdenScan.In("done").From(gen.Out("done"))

		diversityScan := wf.NewProc("diversity_"+tag, fmt.Sprintf(
			"%s diversity --matrix %s --groups %s --out {o:table} # {i:done}",
			omicsctl, abundance, groups))
		diversityScan.SetOut("table", "results/"+tag+"/diversity.csv")
		diversityScan.In("done").From(gen.Out("done"))

		correlateScan := wf.NewProc("correlate_"+tag, fmt.Sprintf(
			"%s correlate --x %s --y %s --min-rho 0.3 --max-q 0.1 --out {o:edges} # {i:done}",
			omicsctl, abundance, immune))
		correlateScan.SetOut("edges", "results/"+tag+"/edges.csv")
		correlateScan.In("done").From(gen.Out("done"))
	}

	wf.Run()
}
