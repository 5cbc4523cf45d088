package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	domainsri "github.com/jhoicas/facturador-sri/internal/domain/sri"
	infrasri "github.com/jhoicas/facturador-sri/internal/infrastructure/sri"
)

var (
	authAttempts int
	authInterval time.Duration
	authOut      string
)

var authorizationCmd = &cobra.Command{
	Use:   "authorization <clave>",
	Short: "Consulta la autorización de una clave de acceso en el SRI",
	Long: `Consulta autorizacionComprobante sin reenviar el comprobante. Con --out
guarda la copia autorizada (<autorizacion>) si el SRI la devuelve.`,
	Args: cobra.ExactArgs(1),
	RunE: runAuthorization,
}

func init() {
	rootCmd.AddCommand(authorizationCmd)

	authorizationCmd.Flags().IntVar(&authAttempts, "intentos", 1, "Número máximo de consultas")
	authorizationCmd.Flags().DurationVar(&authInterval, "intervalo", infrasri.DefaultPollInterval, "Espera entre consultas")
	authorizationCmd.Flags().StringVarP(&authOut, "out", "o", "", "Archivo donde guardar la copia autorizada")
}

func runAuthorization(cmd *cobra.Command, args []string) error {
	key := args[0]
	if err := domainsri.ValidateAccessKey(key); err != nil {
		return err
	}
	log := cliLogger(cmd.ErrOrStderr())
	client := infrasri.NewAuthorityClient(
		infrasri.NewSOAPClient(infrasri.EndpointsFor(environment)),
		log.Component("sri_authority"),
	)

	res := client.PollAuthorization(cmd.Context(), key, infrasri.PollOptions{MaxAttempts: authAttempts, Interval: authInterval})
	out := map[string]any{
		"claveAcceso": key,
		"estado":      res.State,
		"intentos":    res.Attempts,
	}
	if res.AuthorizationNumber != "" {
		out["numeroAutorizacion"] = res.AuthorizationNumber
	}
	if res.AuthorizedAt != nil {
		out["fechaAutorizacion"] = res.AuthorizedAt.Format(time.RFC3339)
	}
	if len(res.Messages) > 0 {
		out["mensajes"] = res.Messages
	}
	if err := printJSON(cmd.OutOrStdout(), out); err != nil {
		return err
	}

	if authOut != "" && res.Authorized() {
		envelope, err := infrasri.AuthorizedEnvelope(res, []byte(res.Document))
		if err != nil {
			return err
		}
		if err := os.WriteFile(authOut, envelope, 0o644); err != nil {
			return fmt.Errorf("guardar %s: %w", authOut, err)
		}
	}
	return nil
}
