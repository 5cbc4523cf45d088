package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	domainsri "github.com/jhoicas/facturador-sri/internal/domain/sri"
	"github.com/jhoicas/facturador-sri/pkg/sri"
)

var (
	keyRUC           string
	keyEstablishment string
	keyEmissionPoint string
	keySequence      int64
	keyDate          string
)

var accessKeyCmd = &cobra.Command{
	Use:   "accesskey",
	Short: "Operaciones sobre claves de acceso",
}

var accessKeyCheckCmd = &cobra.Command{
	Use:   "check <clave>",
	Short: "Valida el dígito verificador y descompone la clave",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		parts, err := domainsri.ParseAccessKey(args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), map[string]any{
			"fecha":             parts.Date.Format("02/01/2006"),
			"tipoComprobante":   parts.DocType,
			"ruc":               parts.RUC,
			"ambiente":          parts.Environment,
			"numero":            domainsri.FormatInvoiceNumber(parts.Establishment, parts.EmissionPoint, parts.Sequence),
			"codigoNumerico":    parts.NumericCode,
			"tipoEmision":       parts.EmissionType,
			"digitoVerificador": parts.CheckDigit,
		})
	},
}

var accessKeyNewCmd = &cobra.Command{
	Use:   "new",
	Short: "Genera una clave de acceso para reprocesos o pruebas",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		date := time.Now()
		if keyDate != "" {
			d, err := time.Parse("2006-01-02", keyDate)
			if err != nil {
				return fmt.Errorf("--fecha debe tener formato AAAA-MM-DD: %w", err)
			}
			date = d
		}
		key, err := domainsri.NewAccessKeyGenerator().Generate(&domainsri.AccessKeyParams{
			Date:          date,
			DocType:       sri.DocTypeInvoice,
			RUC:           keyRUC,
			Environment:   environment,
			Establishment: keyEstablishment,
			EmissionPoint: keyEmissionPoint,
			Sequence:      keySequence,
			EmissionType:  sri.EmissionTypeNormal,
		})
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), key)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(accessKeyCmd)
	accessKeyCmd.AddCommand(accessKeyCheckCmd, accessKeyNewCmd)

	accessKeyNewCmd.Flags().StringVar(&keyRUC, "ruc", "", "RUC del emisor (13 dígitos)")
	accessKeyNewCmd.Flags().StringVar(&keyEstablishment, "estab", "001", "Código de establecimiento")
	accessKeyNewCmd.Flags().StringVar(&keyEmissionPoint, "pto", "001", "Punto de emisión")
	accessKeyNewCmd.Flags().Int64Var(&keySequence, "secuencial", 1, "Secuencial de la factura")
	accessKeyNewCmd.Flags().StringVar(&keyDate, "fecha", "", "Fecha de emisión AAAA-MM-DD (por defecto hoy)")
	_ = accessKeyNewCmd.MarkFlagRequired("ruc")
}
