package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	infrasri "github.com/jhoicas/facturador-sri/internal/infrastructure/sri"
	"github.com/jhoicas/facturador-sri/internal/infrastructure/sri/signer"
)

var verifyCmd = &cobra.Command{
	Use:   "verify <archivo.xml>...",
	Short: "Verifica la firma XAdES-BES de comprobantes firmados",
	Long: `Comprueba los digests de las referencias y la firma RSA-SHA1 con el
certificado embebido en KeyInfo. Acepta el XML firmado o la copia autorizada.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}

func runVerify(cmd *cobra.Command, args []string) error {
	failed := 0
	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("leer %s: %w", path, err)
		}
		if env, err := infrasri.ParseAuthorizedEnvelope(data); err == nil {
			data = env.Comprobante
		}
		ok, err := signer.VerifySignature(data)
		switch {
		case err != nil:
			failed++
			fmt.Fprintf(cmd.OutOrStdout(), "%s: ERROR %v\n", path, err)
		case !ok:
			failed++
			fmt.Fprintf(cmd.OutOrStdout(), "%s: FIRMA INVÁLIDA\n", path)
		default:
			fmt.Fprintf(cmd.OutOrStdout(), "%s: OK\n", path)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d de %d comprobantes no pasaron la verificación", failed, len(args))
	}
	return nil
}
