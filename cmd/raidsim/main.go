// Command raidsim inspects combat and event odds for a province without
// touching the running simulation.
package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/talgya/idle-empire/internal/catalog"
	"github.com/talgya/idle-empire/internal/combat"
	"github.com/talgya/idle-empire/internal/demo"
	"github.com/talgya/idle-empire/internal/entropy"
	"github.com/talgya/idle-empire/internal/events"
	"github.com/talgya/idle-empire/internal/persistence"
	"github.com/talgya/idle-empire/internal/realm"
	"github.com/talgya/idle-empire/internal/terrain"
)

var (
	catalogDir string
	dbPath     string
	provinceID string
	seed       int64
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "raidsim",
		Short: "Idle empire combat and event inspector",
		Long: `Resolves sample engagements and reports event odds for a province,
loaded from a database or from the built-in demo empire.`,
	}
	rootCmd.PersistentFlags().StringVarP(&catalogDir, "catalog", "c", "", "Catalog directory (embedded tables when empty)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database to read the province from")
	rootCmd.PersistentFlags().StringVarP(&provinceID, "province", "p", "prov-01", "Province id")
	rootCmd.PersistentFlags().Int64VarP(&seed, "seed", "s", 1, "Random seed (0 for crypto randomness)")

	duelCmd := &cobra.Command{
		Use:   "duel ENEMY",
		Short: "Resolve one engagement and show every factor",
		Args:  cobra.ExactArgs(1),
		RunE:  runDuel,
	}
	oddsCmd := &cobra.Command{
		Use:   "odds",
		Short: "Tabulate outcome rates against every enemy",
		RunE:  runOdds,
	}
	oddsCmd.Flags().IntP("trials", "n", 10000, "Engagements per enemy")
	eventsCmd := &cobra.Command{
		Use:   "events",
		Short: "Show event chance and the eligible event pool",
		RunE:  runEvents,
	}

	rootCmd.AddCommand(duelCmd, oddsCmd, eventsCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setup loads the catalog, the province, and its empire.
func setup(ctx context.Context) (*catalog.Catalog, *realm.Province, *realm.Empire, error) {
	cat, err := catalog.Load(catalogDir)
	if err != nil {
		return nil, nil, nil, err
	}

	if dbPath != "" {
		db, err := persistence.Open(dbPath)
		if err != nil {
			return nil, nil, nil, err
		}
		defer db.Close()
		p, err := db.Province(ctx, provinceID)
		if err != nil {
			return nil, nil, nil, err
		}
		e, err := db.Empire(ctx, p.CityID)
		if err != nil {
			return nil, nil, nil, err
		}
		return cat, p, e, nil
	}

	provinces := demo.Provinces(terrain.NewGenerator(seed))
	var stocks []realm.ProvinceStock
	var found *realm.Province
	for _, p := range provinces {
		stocks = append(stocks, realm.ProvinceStock{ProvinceID: p.ID, Resources: p.Resources})
		if p.ID == provinceID {
			found = p
		}
	}
	if found == nil {
		return nil, nil, nil, fmt.Errorf("province %s: %w", provinceID, persistence.ErrNotFound)
	}
	return cat, found, realm.NewEmpire(demo.CityID, stocks), nil
}

func printProvince(p *realm.Province) {
	title := color.New(color.FgCyan, color.Bold)
	title.Printf("\n%s (%s, level %d, threat %d)\n", p.Name, terrain.Name(terrain.Kind(p.Terrain)), p.Level, p.Threat)
	if g := p.Governor; g != nil {
		fmt.Printf("Governor %s, %s, loyalty %d, %s xp\n", g.Name, g.Personality, g.Loyalty, humanize.Comma(int64(g.Experience)))
	} else {
		color.Yellow("No governor")
	}
	fmt.Printf("Stock: %s\n\n", p.Resources)
}

func runDuel(cmd *cobra.Command, args []string) error {
	cat, p, _, err := setup(cmd.Context())
	if err != nil {
		return err
	}
	enemy, ok := cat.Enemy(args[0])
	if !ok {
		return fmt.Errorf("unknown enemy %q", args[0])
	}
	printProvince(p)

	defense := combat.ComputeDefenseForce(p, time.Now())
	res := combat.Resolve(enemy, defense, entropy.New(seed))

	f := res.Factors
	table := tablewriter.NewTable(os.Stdout,
		tablewriter.WithHeader([]string{"Factor", "Value"}),
	)
	for _, row := range []struct {
		name string
		v    float64
	}{
		{"Strength ratio", f.StrengthRatio}, {"Fortification", f.Fortification}, {"Terrain", f.Terrain},
		{"Preparation", f.Preparation}, {"Leadership", f.Leadership}, {"Morale", f.Morale},
		{"Equipment", f.Equipment}, {"Tactical", f.Tactical}, {"Weather", f.Weather},
		{"Luck", f.Luck}, {"Surprise", f.Surprise}, {"Total", f.Total()},
	} {
		_ = table.Append([]string{row.name, fmt.Sprintf("%+.3f", row.v)})
	}
	_ = table.Render()

	outcomeColor(res.Outcome).Printf("\n%s (certainty %.0f%%)\n", res.Outcome, res.VictoryCertainty*100)
	fmt.Println(res.Narrative)
	fmt.Printf("Casualties: defenders %d, attackers %d; infrastructure damage %d\n",
		res.DefenderCasualties, res.AttackerCasualties, res.InfrastructureDamage)
	fmt.Printf("Gained: %s\nLost:   %s\n", res.ResourcesGained, res.ResourcesLost)
	return nil
}

func runOdds(cmd *cobra.Command, _ []string) error {
	trials, _ := cmd.Flags().GetInt("trials")
	if trials <= 0 {
		return fmt.Errorf("trials must be positive")
	}
	cat, p, _, err := setup(cmd.Context())
	if err != nil {
		return err
	}
	printProvince(p)

	defense := combat.ComputeDefenseForce(p, time.Now())
	src := entropy.New(seed)
	season := realm.SeasonAt(time.Now())
	eligible := map[string]bool{}
	for _, e := range events.EligibleEnemies(cat.Enemies, p, season) {
		eligible[e.ID] = true
	}

	table := tablewriter.NewTable(os.Stdout,
		tablewriter.WithHeader([]string{"Enemy", "Threat", "Spawns Now", "Victory", "Draw", "Defeat", "Avg Score"}),
	)
	for i := range cat.Enemies {
		enemy := &cat.Enemies[i]
		counts := map[combat.Outcome]int{}
		sum := 0.0
		for range trials {
			r := combat.Resolve(enemy, defense, src)
			counts[r.Outcome]++
			sum += r.Score
		}
		pct := func(o combat.Outcome) string {
			return fmt.Sprintf("%.1f%%", 100*float64(counts[o])/float64(trials))
		}
		spawns := "no"
		if eligible[enemy.ID] {
			spawns = "yes"
		}
		_ = table.Append([]string{
			enemy.DisplayName(), strconv.Itoa(enemy.ThreatLevel), spawns,
			pct(combat.Victory), pct(combat.Draw), pct(combat.Defeat),
			fmt.Sprintf("%.3f", sum/float64(trials)),
		})
	}
	_ = table.Render()
	color.New(color.FgGreen).Printf("\n%s engagements per enemy, %s season\n", humanize.Comma(int64(trials)), realm.SeasonName(season))
	return nil
}

func runEvents(cmd *cobra.Command, _ []string) error {
	cat, p, empire, err := setup(cmd.Context())
	if err != nil {
		return err
	}
	printProvince(p)

	chance := events.EventChance(p, empire)
	fmt.Printf("Event chance per cycle: %.1f%% (manual), %.1f%% (automatic at default dampening)\n\n", chance*100, chance*70)

	eligible := events.Eligible(cat.Events, p, empire)
	total := 0.0
	for i := range eligible {
		total += eligible[i].EffectiveWeight()
	}
	sort.SliceStable(eligible, func(i, j int) bool {
		return eligible[i].EffectiveWeight() > eligible[j].EffectiveWeight()
	})

	table := tablewriter.NewTable(os.Stdout,
		tablewriter.WithHeader([]string{"Event", "Rarity", "Impact", "Weight", "Share"}),
	)
	for i := range eligible {
		e := &eligible[i]
		share := 0.0
		if total > 0 {
			share = e.EffectiveWeight() / total
		}
		_ = table.Append([]string{e.Title, string(e.Rarity), string(e.ImpactType),
			fmt.Sprintf("%.1f", e.EffectiveWeight()), fmt.Sprintf("%.1f%%", share*100)})
	}
	_ = table.Render()
	return nil
}

func outcomeColor(o combat.Outcome) *color.Color {
	switch o {
	case combat.Victory:
		return color.New(color.FgGreen, color.Bold)
	case combat.Draw:
		return color.New(color.FgYellow, color.Bold)
	default:
		return color.New(color.FgRed, color.Bold)
	}
}
