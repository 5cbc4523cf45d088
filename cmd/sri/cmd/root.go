package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/jhoicas/facturador-sri/pkg/logger"
)

var (
	version = "1.0.0"

	// Flags globales
	verbose     bool
	environment string
)

var rootCmd = &cobra.Command{
	Use:   "sri",
	Short: "Herramientas de soporte para facturación electrónica del SRI",
	Long: `sri agrupa utilidades de operación del facturador:

  - accesskey: valida, descompone o genera claves de acceso de 49 dígitos
  - verify:    comprueba la firma XAdES-BES de un comprobante firmado
  - authorization: consulta el estado de autorización de una clave en el SRI
  - ride:      genera el RIDE (PDF) a partir de un XML firmado o autorizado

Ejemplos:
  sri accesskey check 1501202401110276288500110010010000000421234567817
  sri verify xml_firmados/1501...817.xml
  sri authorization 1501202401110276288500110010010000000421234567817 --ambiente 1
  sri ride xml_autorizados/1501...817.xml -o factura.pdf`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

// Execute ejecuta el comando raíz.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Muestra el log de las llamadas al SRI")
	rootCmd.PersistentFlags().StringVar(&environment, "ambiente", "1", "Ambiente del SRI: 1 pruebas, 2 producción")
}

// cliLogger logger de consola con --verbose; descarta todo en caso contrario.
func cliLogger(w io.Writer) *logger.Logger {
	if !verbose {
		return logger.Nop()
	}
	return logger.New(logger.Config{Env: "development", Level: "debug", App: "sri", Out: w})
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("codificar salida: %w", err)
	}
	return nil
}
