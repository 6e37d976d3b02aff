package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

type client struct {
	BaseURL   string
	Token     string
	OutFormat string // "json" | "text"
	HTTP      *http.Client
}

func (c *client) do(method, path string, body []byte) (int, []byte, error) {
	url := strings.TrimRight(c.BaseURL, "/") + path
	req, err := http.NewRequest(method, url, bytes.NewReader(body))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.Token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, b, nil
}

func (c *client) print(status int, body []byte) {
	if c.OutFormat == "json" {
		var v any
		if json.Unmarshal(body, &v) == nil {
			p, _ := json.MarshalIndent(v, "", "  ")
			fmt.Println(string(p))
			return
		}
	}
	if len(body) > 0 {
		fmt.Println(string(body))
	} else {
		fmt.Printf("status=%d\n", status)
	}
}

func newRootCmd() (*cobra.Command, *client) {
	var (
		baseURL = envOr("COGMESH_URL", "http://localhost:8080")
		token   = envOr("COGMESH_TOKEN", "")
		out     = envOr("COGMESH_OUT", "text")
		timeout = 30 * time.Second
	)

	cl := &client{HTTP: &http.Client{Timeout: timeout}}

	root := &cobra.Command{
		Use:   "cogmesh",
		Short: "CLI de administración del mesh (vía /v1)",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Los flags recién tienen valor después del parseo: el client
			// se completa acá, no al construirlo.
			cl.BaseURL = baseURL
			cl.Token = token
			cl.OutFormat = out
			if cl.Token == "" {
				return fmt.Errorf("falta token (flag --token o env COGMESH_TOKEN)")
			}
			return nil
		},
	}

	root.PersistentFlags().StringVar(&baseURL, "url", baseURL, "URL base del API (env COGMESH_URL)")
	root.PersistentFlags().StringVar(&token, "token", token, "Bearer token de servicio (env COGMESH_TOKEN)")
	root.PersistentFlags().StringVar(&out, "out", out, "Formato de salida: json|text")

	// ------- agents -------
	agentsCmd := &cobra.Command{Use: "agents", Short: "Registro de agentes"}

	var regTenant, regName, regDesc string
	registerCmd := &cobra.Command{
		Use:   "register",
		Short: "Registrar un agente (devuelve la API key UNA sola vez)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if regTenant == "" || regName == "" {
				return fmt.Errorf("--tenant y --name son requeridos")
			}
			b, _ := json.Marshal(map[string]any{
				"tenant_id":   regTenant,
				"name":        regName,
				"description": regDesc,
			})
			status, body, err := cl.do("POST", "/v1/agents/", b)
			if err != nil {
				return err
			}
			if status/100 != 2 {
				return fmt.Errorf("register fallo: status=%d body=%s", status, string(body))
			}
			cl.print(status, body)
			return nil
		},
	}
	registerCmd.Flags().StringVar(&regTenant, "tenant", "", "Tenant del agente")
	registerCmd.Flags().StringVar(&regName, "name", "", "Nombre del agente")
	registerCmd.Flags().StringVar(&regDesc, "description", "", "Descripción (opcional)")

	var listTenant string
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "Listar agentes de un tenant",
		RunE: func(cmd *cobra.Command, args []string) error {
			if listTenant == "" {
				return fmt.Errorf("--tenant es requerido")
			}
			status, body, err := cl.do("GET", "/v1/agents/"+listTenant, nil)
			if err != nil {
				return err
			}
			if status/100 != 2 {
				return fmt.Errorf("list fallo: status=%d body=%s", status, string(body))
			}
			cl.print(status, body)
			return nil
		},
	}
	listCmd.Flags().StringVar(&listTenant, "tenant", "", "Tenant")

	var deacTenant, deacAgent string
	deactivateCmd := &cobra.Command{
		Use:   "deactivate",
		Short: "Dar de baja (lógica) un agente",
		RunE: func(cmd *cobra.Command, args []string) error {
			if deacTenant == "" || deacAgent == "" {
				return fmt.Errorf("--tenant y --agent son requeridos")
			}
			status, body, err := cl.do("DELETE", "/v1/agents/"+deacTenant+"/"+deacAgent, nil)
			if err != nil {
				return err
			}
			if status/100 != 2 {
				return fmt.Errorf("deactivate fallo: status=%d body=%s", status, string(body))
			}
			fmt.Println("ok")
			return nil
		},
	}
	deactivateCmd.Flags().StringVar(&deacTenant, "tenant", "", "Tenant")
	deactivateCmd.Flags().StringVar(&deacAgent, "agent", "", "ID del agente")

	agentsCmd.AddCommand(registerCmd, listCmd, deactivateCmd)

	// ------- authority -------
	authorityCmd := &cobra.Command{Use: "authority", Short: "Scopes y overrides de autoridad"}

	var valTenant, valAgent, valAction, valResource string
	var valCost, valUnits float64
	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Validar una acción contra el scope efectivo",
		RunE: func(cmd *cobra.Command, args []string) error {
			if valTenant == "" || valAgent == "" || valAction == "" {
				return fmt.Errorf("--tenant, --agent y --action son requeridos")
			}
			b, _ := json.Marshal(map[string]any{
				"tenant_id":      valTenant,
				"agent_id":       valAgent,
				"action":         valAction,
				"resource":       valResource,
				"estimated_cost": valCost,
				"resource_units": valUnits,
			})
			status, body, err := cl.do("POST", "/v1/authority/validate", b)
			if err != nil {
				return err
			}
			if status/100 != 2 {
				return fmt.Errorf("validate fallo: status=%d body=%s", status, string(body))
			}
			cl.print(status, body)
			return nil
		},
	}
	validateCmd.Flags().StringVar(&valTenant, "tenant", "", "Tenant")
	validateCmd.Flags().StringVar(&valAgent, "agent", "", "ID del agente")
	validateCmd.Flags().StringVar(&valAction, "action", "", "Acción (ej. query/read)")
	validateCmd.Flags().StringVar(&valResource, "resource", "", "Recurso (opcional)")
	validateCmd.Flags().Float64Var(&valCost, "cost", 0, "Costo estimado")
	validateCmd.Flags().Float64Var(&valUnits, "units", 0, "Unidades de recurso")

	var revToken, revBy string
	revokeOverrideCmd := &cobra.Command{
		Use:   "revoke-override",
		Short: "Revocar un override de autoridad por token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if revToken == "" {
				return fmt.Errorf("--token-id es requerido")
			}
			b, _ := json.Marshal(map[string]any{"token": revToken, "revoked_by": revBy})
			status, body, err := cl.do("POST", "/v1/authority/overrides/revoke", b)
			if err != nil {
				return err
			}
			if status/100 != 2 {
				return fmt.Errorf("revoke fallo: status=%d body=%s", status, string(body))
			}
			fmt.Println("ok")
			return nil
		},
	}
	revokeOverrideCmd.Flags().StringVar(&revToken, "token-id", "", "Token del override")
	revokeOverrideCmd.Flags().StringVar(&revBy, "by", "cli", "Quién revoca")

	var auditTenant, auditAgent string
	auditCmd := &cobra.Command{
		Use:   "audit",
		Short: "Listar el audit trail de un tenant",
		RunE: func(cmd *cobra.Command, args []string) error {
			if auditTenant == "" {
				return fmt.Errorf("--tenant es requerido")
			}
			path := "/v1/authority/audit/" + auditTenant
			if auditAgent != "" {
				path += "?agent_id=" + auditAgent
			}
			status, body, err := cl.do("GET", path, nil)
			if err != nil {
				return err
			}
			if status/100 != 2 {
				return fmt.Errorf("audit fallo: status=%d body=%s", status, string(body))
			}
			cl.print(status, body)
			return nil
		},
	}
	auditCmd.Flags().StringVar(&auditTenant, "tenant", "", "Tenant")
	auditCmd.Flags().StringVar(&auditAgent, "agent", "", "Filtrar por agente (opcional)")

	authorityCmd.AddCommand(validateCmd, revokeOverrideCmd, auditCmd)

	// ------- consent -------
	consentCmd := &cobra.Command{Use: "consent", Short: "Consentimientos"}

	var emTenant, emAgent, emReason, emBy string
	emergencyCmd := &cobra.Command{
		Use:   "emergency",
		Short: "Emitir un override de emergencia (queda auditado)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if emTenant == "" || emAgent == "" || emReason == "" {
				return fmt.Errorf("--tenant, --agent y --reason son requeridos")
			}
			b, _ := json.Marshal(map[string]any{
				"tenant_id":     emTenant,
				"agent_id":      emAgent,
				"reason":        emReason,
				"authorized_by": emBy,
			})
			status, body, err := cl.do("POST", "/v1/consent/emergency", b)
			if err != nil {
				return err
			}
			if status/100 != 2 {
				return fmt.Errorf("emergency fallo: status=%d body=%s", status, string(body))
			}
			cl.print(status, body)
			return nil
		},
	}
	emergencyCmd.Flags().StringVar(&emTenant, "tenant", "", "Tenant")
	emergencyCmd.Flags().StringVar(&emAgent, "agent", "", "ID del agente")
	emergencyCmd.Flags().StringVar(&emReason, "reason", "", "Motivo del override")
	emergencyCmd.Flags().StringVar(&emBy, "by", "cli", "Quién autoriza")

	consentCmd.AddCommand(emergencyCmd)

	root.AddCommand(agentsCmd, authorityCmd, consentCmd)
	return root, cl
}

func main() {
	root, _ := newRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
