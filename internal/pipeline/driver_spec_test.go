package pipeline

import (
	"context"
	"os"
	"path/filepath"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	"nicer/internal/config"
	"nicer/internal/obs"
	"nicer/internal/stage"
	"nicer/internal/store"
	"nicer/internal/testutil"
)

var _ = ginkgo.Describe("Driver", func() {
	var (
		cfg *config.Config
		sim *testutil.Sim
		st  *store.SqlStore
	)

	ginkgo.BeforeEach(func() {
		cfg = testutil.Config(ginkgo.GinkgoT())
		testutil.RawObservations(ginkgo.GinkgoT(), cfg.ObsRoot, "1050300108", "1050300109")
		sim = testutil.NewSim(cfg)
		var err error
		st, err = store.Open(cfg.LedgerPath())
		gomega.Expect(err).To(gomega.Succeed())
		ginkgo.DeferCleanup(st.Close)
	})

	ginkgo.It("runs create, fit and flux in order and writes every record", func() {
		rep, err := New(stage.NewEnv(cfg, sim), st).Run(context.Background())
		gomega.Expect(err).To(gomega.Succeed())
		gomega.Expect(rep.Failed()).To(gomega.BeFalse())

		gomega.Expect(sim.Tools()).To(gomega.Equal([]string{
			"nicerl2", "nicerl3-spect", "nicerl2", "nicerl3-spect", "xspec", "xspec", "xspec", "xspec",
		}))
		for _, id := range []string{"1050300108", "1050300109"} {
			for _, f := range []string{obs.ProductsFile, obs.FitResultFile, obs.FitModelFile, obs.FluxResultFile} {
				gomega.Expect(filepath.Join(cfg.OutputDir, id, f)).To(gomega.BeAnExistingFile())
			}
		}
		gomega.Expect(filepath.Join(cfg.PlotDir(), "flux.png")).To(gomega.BeAnExistingFile())

		flux, err := obs.ReadArtifact[obs.FluxResult](filepath.Join(cfg.OutputDir, "1050300108"), obs.FluxResultFile)
		gomega.Expect(err).To(gomega.Succeed())
		gomega.Expect(flux.FitFile).To(gomega.Equal(filepath.Join(cfg.OutputDir, "1050300108", obs.FitResultFile)))
	})

	ginkgo.It("fits existing spectra when create is disabled", func() {
		cfg.Switches = config.Switches{Create: true}
		_, err := New(stage.NewEnv(cfg, sim), st).Run(context.Background())
		gomega.Expect(err).To(gomega.Succeed())

		cfg.Switches = config.Switches{Fit: true}
		rerun := testutil.NewSim(cfg)
		rep, err := New(stage.NewEnv(cfg, rerun), st).Run(context.Background())
		gomega.Expect(err).To(gomega.Succeed())

		gomega.Expect(rep.Result(stage.Create).Status).To(gomega.Equal(stage.Skipped))
		gomega.Expect(rep.Result(stage.Fit).Status).To(gomega.Equal(stage.OK))
		gomega.Expect(rerun.Tools()).To(gomega.Equal([]string{"xspec", "xspec"}))
		gomega.Expect(filepath.Join(cfg.OutputDir, "1050300109", obs.FitResultFile)).To(gomega.BeAnExistingFile())
	})

	ginkgo.It("runs fit without work when nothing has been reduced", func() {
		cfg.Switches = config.Switches{Fit: true}
		rep, err := New(stage.NewEnv(cfg, sim), st).Run(context.Background())
		gomega.Expect(err).To(gomega.Succeed())
		gomega.Expect(rep.Failed()).To(gomega.BeFalse())
		gomega.Expect(sim.Tools()).To(gomega.BeEmpty())
	})

	ginkgo.It("halts on failure and leaves the ledger readable", func() {
		sim.Fail(cfg.Tools.Xspec)
		d := New(stage.NewEnv(cfg, sim), st)
		rep, err := d.Run(context.Background())
		gomega.Expect(err).To(gomega.Succeed())
		gomega.Expect(rep.HaltedAt).To(gomega.Equal(stage.Fit))
		_, statErr := os.Stat(filepath.Join(cfg.OutputDir, "1050300108", obs.FluxResultFile))
		gomega.Expect(os.IsNotExist(statErr)).To(gomega.BeTrue())

		entries, err := st.ListRun(d.RunID)
		gomega.Expect(err).To(gomega.Succeed())
		var failed []string
		for _, e := range entries {
			if e.Status == string(stage.Failed) && e.ObsID != "" {
				failed = append(failed, e.Stage+"/"+e.ObsID)
			}
		}
		gomega.Expect(failed).To(gomega.ConsistOf("fit/1050300108", "fit/1050300109"))

		latest, err := st.LatestByObservation()
		gomega.Expect(err).To(gomega.Succeed())
		gomega.Expect(latest).To(gomega.HaveLen(4))
	})
})
