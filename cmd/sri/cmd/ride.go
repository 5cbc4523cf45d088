package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	infrapdf "github.com/jhoicas/facturador-sri/internal/infrastructure/pdf"
	infrasri "github.com/jhoicas/facturador-sri/internal/infrastructure/sri"
)

var rideOut string

var rideCmd = &cobra.Command{
	Use:   "ride <archivo.xml>",
	Short: "Genera el RIDE (PDF) de un comprobante",
	Long: `Acepta la copia autorizada (<autorizacion>) o el XML firmado; en el
segundo caso el RIDE se marca como pendiente de autorización.`,
	Args: cobra.ExactArgs(1),
	RunE: runRIDE,
}

func init() {
	rootCmd.AddCommand(rideCmd)
	rideCmd.Flags().StringVarP(&rideOut, "out", "o", "", "Archivo PDF de salida (por defecto RIDE-<clave>.pdf)")
}

func runRIDE(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("leer %s: %w", args[0], err)
	}

	var auth *infrasri.AuthorizedDocument
	if strings.Contains(string(data), "<autorizacion") {
		auth, err = infrasri.ParseAuthorizedEnvelope(data)
		if err != nil {
			return err
		}
		data = auth.Comprobante
	}
	view, err := infrasri.ParseInvoice(data)
	if err != nil {
		return err
	}
	pdf, err := infrapdf.NewRIDEGenerator().Render(cmd.Context(), view, auth)
	if err != nil {
		return err
	}

	out := rideOut
	if out == "" {
		out = "RIDE-" + view.AccessKey + ".pdf"
	}
	if err := os.WriteFile(out, pdf, 0o644); err != nil {
		return fmt.Errorf("guardar %s: %w", out, err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), out)
	return nil
}
