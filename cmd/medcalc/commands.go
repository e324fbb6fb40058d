package main

import (
	"fmt"
	"strings"

	"github.com/giygas/medcalc-api/calculator"
	"github.com/giygas/medcalc-api/catalog"
	"github.com/giygas/medcalc-api/search"
	"github.com/giygas/medcalc-api/units"
	"github.com/spf13/cobra"
)

func amountWithUnit(v float64, unit string) string {
	if unit == "" {
		return units.FormatNumber(v)
	}
	return units.FormatNumber(v) + " " + unit
}

func doseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dose",
		Short: "Compute medication doses",
	}

	// dose weight
	weightCmd := &cobra.Command{
		Use:   "weight",
		Short: "Weight-based dose from a per-kg amount",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			weight, _ := cmd.Flags().GetFloat64("weight")
			weightUnit, _ := cmd.Flags().GetString("weight-unit")
			perKg, _ := cmd.Flags().GetFloat64("dose-per-kg")
			doseUnit, _ := cmd.Flags().GetString("dose-unit")
			frequency, _ := cmd.Flags().GetFloat64("frequency")

			wu, err := units.ParseWeightUnit(weightUnit)
			if err != nil {
				return &calculator.InputError{Field: "weight unit", Reason: err.Error()}
			}

			result, err := calculator.ComputeWeightBasedDose(calculator.WeightDoseRequest{
				Weight:          weight,
				WeightUnit:      wu,
				DosePerKg:       perKg,
				DoseUnit:        doseUnit,
				FrequencyPerDay: frequency,
			})
			if err != nil {
				return err
			}

			return printResult(cmd, result, []field{
				{"Weight", amountWithUnit(result.WeightKg, "kg")},
				{"Single dose", amountWithUnit(result.SingleDose, result.DoseUnit)},
				{"Daily dose", amountWithUnit(result.DailyDose, result.DoseUnit) + "/day"},
			})
		},
	}
	weightCmd.Flags().Float64("weight", 0, "patient weight")
	weightCmd.Flags().String("weight-unit", "kg", "kg or lb")
	weightCmd.Flags().Float64("dose-per-kg", 0, "dose per kilogram")
	weightCmd.Flags().String("dose-unit", "mg/kg", "unit of the per-kg dose")
	weightCmd.Flags().Float64("frequency", 1, "doses per day")
	cmd.AddCommand(weightCmd)

	// dose catalog
	catalogCmd := &cobra.Command{
		Use:   "catalog <medication-id>",
		Short: "Dose of a catalog medication for an age tier",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := loadCatalog(cmd)
			if err != nil {
				return err
			}
			med, ok := cat.Medication(strings.TrimSpace(args[0]))
			if !ok {
				return fmt.Errorf("medication %q not found", args[0])
			}

			tier, _ := cmd.Flags().GetString("tier")
			renal, _ := cmd.Flags().GetString("renal")
			indication, _ := cmd.Flags().GetString("indication")
			weight, _ := cmd.Flags().GetFloat64("weight")
			weightUnit, _ := cmd.Flags().GetString("weight-unit")

			req := calculator.CatalogDoseRequest{Weight: weight}
			if req.Tier, err = catalog.ParseAgeTier(tier); err != nil {
				return &calculator.InputError{Field: "tier", Reason: err.Error()}
			}
			if req.Renal, err = catalog.ParseRenalTier(renal); err != nil {
				return &calculator.InputError{Field: "renal", Reason: err.Error()}
			}
			if req.Indication, err = calculator.ParseIndication(indication); err != nil {
				return err
			}
			if req.WeightUnit, err = units.ParseWeightUnit(weightUnit); err != nil {
				return &calculator.InputError{Field: "weight unit", Reason: err.Error()}
			}

			result, err := calculator.NewDoseCalculator(calculator.DefaultOverrides()).ComputeCatalogDose(med, req)
			if err != nil {
				return err
			}

			fields := []field{
				{"Medication", result.Name},
				{"Route", result.Route},
				{"Single dose", amountWithUnit(result.SingleDose, result.DoseUnit)},
				{"Frequency", result.Frequency},
				{"Daily total", amountWithUnit(result.DailyTotal, result.DoseUnit) + "/day"},
			}
			if result.MaxDaily != nil {
				fields = append(fields, field{"Max daily", amountWithUnit(*result.MaxDaily, result.MaxDailyUnit) + "/day"})
			}
			if result.Capped {
				fields = append(fields, field{"Capped", "single dose limited by the daily maximum"})
			}
			if result.Override != nil {
				fields = append(fields, field{"Indication", string(result.Override.Indication)})
			}
			if result.Renal != nil {
				fields = append(fields, field{"Renal (" + string(result.Renal.Tier) + ")", result.Renal.Note})
			}
			fields = append(fields, field{"Notes", result.Notes})
			for _, w := range result.Warnings {
				fields = append(fields, field{"Warning", w})
			}

			return printResult(cmd, result, fields)
		},
	}
	catalogCmd.Flags().String("tier", string(catalog.Adult), "adult, pediatric or neonate")
	catalogCmd.Flags().Float64("weight", 0, "patient weight (not needed for fixed doses)")
	catalogCmd.Flags().String("weight-unit", "kg", "kg or lb")
	catalogCmd.Flags().String("renal", "", "renal function: mild, moderate, severe or esrd")
	catalogCmd.Flags().String("indication", "", "standard, severe or meningitis")
	cmd.AddCommand(catalogCmd)

	return cmd
}

func infusionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "infusion",
		Short: "Compute infusion rates",
	}

	// infusion volume
	volumeCmd := &cobra.Command{
		Use:   "volume",
		Short: "Pump and drip rate of a volume over a time",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			volume, _ := cmd.Flags().GetFloat64("volume")
			duration, _ := cmd.Flags().GetFloat64("time")
			timeUnit, _ := cmd.Flags().GetString("time-unit")
			dropFactor, _ := cmd.Flags().GetFloat64("drop-factor")

			tu, err := units.ParseTimeUnit(timeUnit)
			if err != nil {
				return &calculator.InputError{Field: "time unit", Reason: err.Error()}
			}

			result, err := calculator.ComputeVolumeBasedRate(calculator.VolumeRateRequest{
				TotalVolumeML: volume,
				InfusionTime:  duration,
				TimeUnit:      tu,
				DropFactor:    dropFactor,
			})
			if err != nil {
				return err
			}

			return printResult(cmd, result, []field{
				{"Flow rate", amountWithUnit(result.FlowRateMLPerHr, "mL/hr")},
				{"Drip rate", fmt.Sprintf("%d gtt/min", result.RoundedDropsPerMin())},
				{"Exact drops", amountWithUnit(result.DropsPerMin, "gtt/min")},
				{"Duration", units.FormatDuration(result.DurationHours)},
			})
		},
	}
	volumeCmd.Flags().Float64("volume", 0, "total volume in mL")
	volumeCmd.Flags().Float64("time", 0, "infusion time")
	volumeCmd.Flags().String("time-unit", "hr", "hr or min")
	volumeCmd.Flags().Float64("drop-factor", 15, "administration set drop factor in gtt/mL")
	cmd.AddCommand(volumeCmd)

	// infusion dose
	rateCmd := &cobra.Command{
		Use:   "dose",
		Short: "Pump rate delivering a dose rate from a prepared bag",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			drugAmount, _ := cmd.Flags().GetFloat64("drug-amount")
			drugUnit, _ := cmd.Flags().GetString("drug-unit")
			bagVolume, _ := cmd.Flags().GetFloat64("bag-volume")
			dose, _ := cmd.Flags().GetFloat64("dose")
			doseUnit, _ := cmd.Flags().GetString("dose-unit")
			weight, _ := cmd.Flags().GetFloat64("weight")
			weightUnit, _ := cmd.Flags().GetString("weight-unit")

			mu, err := units.ParseMassUnit(drugUnit)
			if err != nil {
				return &calculator.InputError{Field: "drug unit", Reason: err.Error()}
			}
			du, err := calculator.ParseDoseRateUnit(doseUnit)
			if err != nil {
				return err
			}
			wu, err := units.ParseWeightUnit(weightUnit)
			if err != nil {
				return &calculator.InputError{Field: "weight unit", Reason: err.Error()}
			}

			result, err := calculator.ComputeDoseBasedRate(calculator.DoseRateRequest{
				DrugAmount:    drugAmount,
				DrugUnit:      mu,
				BagVolumeML:   bagVolume,
				DesiredDose:   dose,
				DesiredUnit:   du,
				PatientWeight: weight,
				WeightUnit:    wu,
			})
			if err != nil {
				return err
			}

			return printResult(cmd, result, []field{
				{"Flow rate", amountWithUnit(result.FlowRateMLPerHr, "mL/hr")},
				{"Concentration", amountWithUnit(result.Concentration, result.ConcentrationUnit)},
				{"Dose per hour", amountWithUnit(result.DosePerHour, result.DosePerHourUnit)},
				{"Bag lasts", units.FormatDuration(result.DurationHours)},
			})
		},
	}
	rateCmd.Flags().Float64("drug-amount", 0, "drug in the bag")
	rateCmd.Flags().String("drug-unit", "mg", "g, mg, mcg or units")
	rateCmd.Flags().Float64("bag-volume", 0, "bag volume in mL")
	rateCmd.Flags().Float64("dose", 0, "desired dose rate")
	rateCmd.Flags().String("dose-unit", "mcg/kg/min", "<mass>[/kg]/<min|hr>")
	rateCmd.Flags().Float64("weight", 0, "patient weight for per-kg rates")
	rateCmd.Flags().String("weight-unit", "kg", "kg or lb")
	cmd.AddCommand(rateCmd)

	return cmd
}

func dilutionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dilution",
		Short: "Compute dilutions and reconstitutions",
	}

	// dilution target
	targetCmd := &cobra.Command{
		Use:   "target",
		Short: "Stock and diluent volumes reaching a target concentration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			stock, _ := cmd.Flags().GetFloat64("stock")
			stockUnit, _ := cmd.Flags().GetString("stock-unit")
			target, _ := cmd.Flags().GetFloat64("target")
			targetUnit, _ := cmd.Flags().GetString("target-unit")
			finalVolume, _ := cmd.Flags().GetFloat64("final-volume")

			su, err := units.ParseConcentrationUnit(stockUnit)
			if err != nil {
				return &calculator.InputError{Field: "stock unit", Reason: err.Error()}
			}
			tu, err := units.ParseConcentrationUnit(targetUnit)
			if err != nil {
				return &calculator.InputError{Field: "target unit", Reason: err.Error()}
			}

			result, err := calculator.ComputeDilution(calculator.DilutionRequest{
				StockConc:     stock,
				StockUnit:     su,
				TargetConc:    target,
				TargetUnit:    tu,
				FinalVolumeML: finalVolume,
			})
			if err != nil {
				return err
			}

			return printResult(cmd, result, []field{
				{"Stock volume", amountWithUnit(result.StockVolumeML, "mL")},
				{"Diluent volume", amountWithUnit(result.DiluentVolumeML, "mL")},
				{"Final concentration", amountWithUnit(result.FinalConc, result.FinalConcUnit)},
			})
		},
	}
	targetCmd.Flags().Float64("stock", 0, "stock concentration")
	targetCmd.Flags().String("stock-unit", "mg/mL", "mg/mL, mcg/mL, % or units/mL")
	targetCmd.Flags().Float64("target", 0, "target concentration")
	targetCmd.Flags().String("target-unit", "mg/mL", "mg/mL, mcg/mL, % or units/mL")
	targetCmd.Flags().Float64("final-volume", 0, "final volume in mL")
	cmd.AddCommand(targetCmd)

	// dilution reconstitute
	reconstituteCmd := &cobra.Command{
		Use:   "reconstitute",
		Short: "Concentration of a reconstituted vial and the volume to draw",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			powder, _ := cmd.Flags().GetFloat64("powder")
			powderUnit, _ := cmd.Flags().GetString("powder-unit")
			diluent, _ := cmd.Flags().GetFloat64("diluent")
			dose, _ := cmd.Flags().GetFloat64("dose")
			doseUnit, _ := cmd.Flags().GetString("dose-unit")

			pu, err := units.ParseMassUnit(powderUnit)
			if err != nil {
				return &calculator.InputError{Field: "powder unit", Reason: err.Error()}
			}
			du, err := units.ParseMassUnit(doseUnit)
			if err != nil {
				return &calculator.InputError{Field: "dose unit", Reason: err.Error()}
			}

			result, err := calculator.ComputeReconstitution(calculator.ReconstitutionRequest{
				PowderAmount:    powder,
				PowderUnit:      pu,
				DiluentVolumeML: diluent,
				DesiredDose:     dose,
				DesiredUnit:     du,
			})
			if err != nil {
				return describeError(err)
			}

			return printResult(cmd, result, []field{
				{"Concentration", amountWithUnit(result.FinalConcentration, result.ConcentrationUnit)},
				{"Volume to draw", amountWithUnit(result.VolumeToDrawML, "mL")},
				{"Vial content", amountWithUnit(result.MaxDeliverable, result.AmountUnit)},
			})
		},
	}
	reconstituteCmd.Flags().Float64("powder", 0, "powder amount in the vial")
	reconstituteCmd.Flags().String("powder-unit", "mg", "g, mg, mcg or units")
	reconstituteCmd.Flags().Float64("diluent", 0, "diluent volume in mL")
	reconstituteCmd.Flags().Float64("dose", 0, "desired dose")
	reconstituteCmd.Flags().String("dose-unit", "mg", "g, mg, mcg or units")
	cmd.AddCommand(reconstituteCmd)

	return cmd
}

func searchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Search medications by generic or brand name",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := loadCatalog(cmd)
			if err != nil {
				return err
			}

			query := strings.Join(args, " ")
			matches := search.NewIndex(cat).Search(query)

			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				return printResult(cmd, matches, nil)
			}

			out := cmd.OutOrStdout()
			if len(matches) == 0 {
				_, err := fmt.Fprintf(out, "No medications match %q\n", query)
				return err
			}
			for _, m := range matches {
				name := m.Highlighted("[", "]")
				if m.Type == search.MatchBrand {
					name = m.Name + " (brand " + name + ")"
				}
				if _, err := fmt.Fprintf(out, "%-24s %s  %s\n", m.ID, name, m.CategoryName); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <medication-id>",
		Short: "Show the catalog entry of a medication",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := loadCatalog(cmd)
			if err != nil {
				return err
			}
			med, ok := cat.Medication(strings.TrimSpace(args[0]))
			if !ok {
				return fmt.Errorf("medication %q not found", args[0])
			}

			fields := []field{
				{"Name", med.Name},
				{"Category", cat.CategoryName(med.CategoryID)},
				{"Route", med.Route},
				{"Brands", strings.Join(cat.Aliases(med.ID), ", ")},
			}
			for _, tier := range catalog.AgeTiers {
				fields = append(fields, field{strings.ToUpper(string(tier[:1])) + string(tier[1:]), describeRule(med, tier)})
			}
			if med.RenalAdjustable {
				for _, tier := range catalog.RenalTiers {
					if adj, ok := med.RenalAdjustmentFor(tier); ok {
						fields = append(fields, field{"Renal " + string(tier), adj.Frequency + " " + adj.Note})
					}
				}
			}
			fields = append(fields, field{"Notes", med.Notes}, field{"Reference", med.Reference})
			for _, w := range med.Warnings {
				fields = append(fields, field{"Warning", w})
			}

			return printResult(cmd, med, fields)
		},
	}
}

// describeRule renders one tier rule, e.g. "15 mg/kg Q12H (max 4,000 mg/day)"
func describeRule(med *catalog.Medication, tier catalog.AgeTier) string {
	rule, ok := med.Rule(tier)
	if !ok {
		return "not established"
	}

	s := amountWithUnit(*rule.Amount, rule.Unit) + " " + rule.Frequency
	if rule.MaxDaily != nil {
		s += fmt.Sprintf(" (max %s/day)", amountWithUnit(*rule.MaxDaily, rule.DoseUnit()))
	}
	return s
}
