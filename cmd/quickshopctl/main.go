// quickshopctl is a CLI tool for driving quickshop popup sessions.
// Each command performs a single operation, making it composable for scripts.
//
// Commands:
//
//	quickshopctl session -service URL [-payload location=file]... [-source page|storefront]
//	quickshopctl open -service URL -session ID -product N
//	quickshopctl select -service URL -session ID -option NAME -value VALUE
//	quickshopctl add -service URL -session ID
//	quickshopctl close -service URL -session ID
//	quickshopctl state -service URL -session ID
//
// Examples:
//
//	SID=$(quickshopctl session -payload product-json-632910392=shell.json -q)
//	quickshopctl open -session "$SID" -product 632910392
//	quickshopctl select -session "$SID" -option Color -value Black
//	quickshopctl select -session "$SID" -option Size -value Small
//	quickshopctl add -session "$SID"
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"quickshop/internal/render"
)

var client = &http.Client{Timeout: 30 * time.Second}

// Global flags (apply to all commands)
var (
	serviceURL  string
	sessionID   string
	quiet       bool
	noColor     bool
	verbose     bool
	embedHeader string // Quickshop-Embed header value, built from session flags
)

// ANSI color codes
var (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
	colorBold   = "\033[1m"
)

func init() {
	if os.Getenv("NO_COLOR") != "" {
		disableColors()
	}
}

func disableColors() {
	colorReset, colorRed, colorGreen, colorYellow = "", "", "", ""
	colorBlue, colorCyan, colorGray, colorBold = "", "", "", ""
}

func main() {
	// Development convenience; a missing .env file is fine
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "session":
		runSession(args)
	case "open":
		runOpen(args)
	case "select":
		runSelect(args)
	case "add":
		runAdd(args)
	case "close":
		runClose(args)
	case "state":
		runState(args)
	case "-h", "-help", "--help", "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `quickshopctl - quickshop popup session test tool

Usage:
  quickshopctl <command> [options]

Commands:
  session   Create a popup session, optionally pushing page payloads
  open      Open the popup on a product
  select    Select a variant option value
  add       Add the selected variant to the cart
  close     Close the popup
  state     Show session state

Examples:
  # Create a session with a page-embedded product document
  SID=$(quickshopctl session -payload product-json-632910392=shell.json -q)

  # Open the product and pick a variant
  quickshopctl open -session "$SID" -product 632910392
  quickshopctl select -session "$SID" -option Color -value Black
  quickshopctl select -session "$SID" -option Size -value Small

  # Add to cart
  quickshopctl add -session "$SID"

Run 'quickshopctl <command> -h' for command-specific options.
`)
}

// payloadList collects repeated -payload location=file flags.
type payloadList map[string]string

func (p payloadList) String() string {
	parts := make([]string, 0, len(p))
	for loc, file := range p {
		parts = append(parts, loc+"="+file)
	}
	return strings.Join(parts, ",")
}

func (p payloadList) Set(value string) error {
	loc, file, ok := strings.Cut(value, "=")
	if !ok || loc == "" || file == "" {
		return fmt.Errorf("expected location=file, got %q", value)
	}
	p[loc] = file
	return nil
}

// commonFlags registers the flags every command shares. The service
// URL default honors QUICKSHOP_SERVICE so a .env file can point every
// invocation at one deployment.
func commonFlags(fs *flag.FlagSet, needsSession bool) {
	defaultService := os.Getenv("QUICKSHOP_SERVICE")
	if defaultService == "" {
		defaultService = "http://localhost:8080"
	}
	fs.StringVar(&serviceURL, "service", defaultService, "Quickshop service base URL")
	if needsSession {
		fs.StringVar(&sessionID, "session", "", "Session ID (required)")
	}
	fs.BoolVar(&quiet, "q", false, "Quiet mode - minimal output")
	fs.BoolVar(&noColor, "no-color", false, "Disable colored output")
	fs.BoolVar(&verbose, "v", false, "Verbose - show full request/response")
}

// =============================================================================
// SESSION COMMAND
// =============================================================================

func runSession(args []string) {
	fs := flag.NewFlagSet("session", flag.ExitOnError)
	commonFlags(fs, false)

	payloads := payloadList{}
	var source, embedVersion, moneyFormat string
	var noNotify bool
	fs.Var(payloads, "payload", "Page payload as location=file (repeatable)")
	fs.StringVar(&source, "source", "", "Payload source: page or storefront (default: service config)")
	fs.StringVar(&embedVersion, "embed-version", "", "Declare an embed script version")
	fs.StringVar(&moneyFormat, "money-format", "", "Declare a money format pattern")
	fs.BoolVar(&noNotify, "no-notify", false, "Opt out of cart-updated events")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: quickshopctl session [-payload location=file]... [options]\n\nOptions:\n")
		fs.PrintDefaults()
	}
	fs.Parse(args)

	if noColor {
		disableColors()
	}

	embedHeader = buildEmbedHeader(embedVersion, moneyFormat, noNotify)

	reqBody := map[string]interface{}{}
	if source != "" {
		reqBody["source"] = source
	}
	if len(payloads) > 0 {
		docs := make(map[string]string, len(payloads))
		for loc, file := range payloads {
			data, err := os.ReadFile(file)
			if err != nil {
				fatal("Failed to read payload %s: %v", file, err)
			}
			docs[loc] = string(data)
		}
		reqBody["page_payloads"] = docs
	}

	resp, err := doRequest("POST", "/sessions", reqBody)
	if err != nil {
		fatal("Failed to create session: %v", err)
	}

	id, _ := resp["session_id"].(string)
	if quiet {
		fmt.Println(id)
	} else {
		printSuccess("Session created")
		fmt.Printf("  ID: %s%s%s\n", colorCyan, id, colorReset)
		fmt.Printf("  Payloads: %d\n", len(payloads))
	}
}

// buildEmbedHeader assembles a Quickshop-Embed header value from the
// declaration flags. Empty when nothing was declared.
func buildEmbedHeader(version, moneyFormat string, noNotify bool) string {
	var parts []string
	if version != "" {
		parts = append(parts, fmt.Sprintf("version=%q", version))
	}
	if moneyFormat != "" {
		parts = append(parts, fmt.Sprintf("money-format=%q", moneyFormat))
	}
	if noNotify {
		parts = append(parts, "notify=?0")
	}
	return strings.Join(parts, ", ")
}

// =============================================================================
// OPEN COMMAND
// =============================================================================

func runOpen(args []string) {
	fs := flag.NewFlagSet("open", flag.ExitOnError)
	commonFlags(fs, true)
	var productID int64
	fs.Int64Var(&productID, "product", 0, "Product ID (required)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: quickshopctl open -session ID -product N [options]\n\nOptions:\n")
		fs.PrintDefaults()
	}
	fs.Parse(args)

	if noColor {
		disableColors()
	}
	if sessionID == "" || productID == 0 {
		fs.Usage()
		os.Exit(1)
	}

	resp, err := doRequest("POST", "/sessions/"+url.PathEscape(sessionID)+"/open",
		map[string]interface{}{"product_id": productID})
	if err != nil {
		fatal("Failed to open popup: %v", err)
	}

	status, _ := resp["status"].(string)
	if quiet {
		fmt.Println(status)
		return
	}

	if status == "open" {
		printSuccess("Popup opened")
	} else {
		printWarning("Popup did not open (payload missing or malformed)")
	}
	printOps(resp)
}

// =============================================================================
// SELECT COMMAND
// =============================================================================

func runSelect(args []string) {
	fs := flag.NewFlagSet("select", flag.ExitOnError)
	commonFlags(fs, true)
	var option, value string
	fs.StringVar(&option, "option", "", "Option name, e.g. Color (required)")
	fs.StringVar(&value, "value", "", "Option value, e.g. Black (required)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: quickshopctl select -session ID -option NAME -value VALUE [options]\n\nOptions:\n")
		fs.PrintDefaults()
	}
	fs.Parse(args)

	if noColor {
		disableColors()
	}
	if sessionID == "" || option == "" {
		fs.Usage()
		os.Exit(1)
	}

	resp, err := doRequest("POST", "/sessions/"+url.PathEscape(sessionID)+"/select",
		map[string]interface{}{"option": option, "value": value})
	if err != nil {
		fatal("Failed to select option: %v", err)
	}

	if quiet {
		return
	}
	printSuccess("Selected %s = %s", option, value)
	printOps(resp)
}

// =============================================================================
// ADD COMMAND
// =============================================================================

func runAdd(args []string) {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	commonFlags(fs, true)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: quickshopctl add -session ID [options]\n\nOptions:\n")
		fs.PrintDefaults()
	}
	fs.Parse(args)

	if noColor {
		disableColors()
	}
	if sessionID == "" {
		fs.Usage()
		os.Exit(1)
	}

	resp, err := doRequest("POST", "/sessions/"+url.PathEscape(sessionID)+"/add-to-cart", nil)
	if err != nil {
		fatal("Failed to add to cart: %v", err)
	}

	msgType, content := responseMessage(resp)
	if quiet {
		fmt.Println(content)
		return
	}

	if msgType == "error" {
		printError("%s", content)
	} else {
		printSuccess("%s", content)
	}

	if added, ok := resp["added"].([]interface{}); ok && len(added) > 0 {
		for _, raw := range added {
			item, ok := raw.(map[string]interface{})
			if !ok {
				continue
			}
			label := ""
			if bundled, _ := item["bundled"].(bool); bundled {
				label = " (bundle)"
			}
			fmt.Printf("  Variant %s%v%s x%v%s\n",
				colorCyan, item["variant_id"], colorReset, item["quantity"], label)
		}
	}
	printOps(resp)
}

// =============================================================================
// CLOSE COMMAND
// =============================================================================

func runClose(args []string) {
	fs := flag.NewFlagSet("close", flag.ExitOnError)
	commonFlags(fs, true)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: quickshopctl close -session ID [options]\n\nOptions:\n")
		fs.PrintDefaults()
	}
	fs.Parse(args)

	if noColor {
		disableColors()
	}
	if sessionID == "" {
		fs.Usage()
		os.Exit(1)
	}

	resp, err := doRequest("POST", "/sessions/"+url.PathEscape(sessionID)+"/close", nil)
	if err != nil {
		fatal("Failed to close popup: %v", err)
	}

	if quiet {
		return
	}
	printSuccess("Popup closed")
	printOps(resp)
}

// =============================================================================
// STATE COMMAND
// =============================================================================

func runState(args []string) {
	fs := flag.NewFlagSet("state", flag.ExitOnError)
	commonFlags(fs, true)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: quickshopctl state -session ID [options]\n\nOptions:\n")
		fs.PrintDefaults()
	}
	fs.Parse(args)

	if noColor {
		disableColors()
	}
	if sessionID == "" {
		fs.Usage()
		os.Exit(1)
	}

	resp, err := doRequest("GET", "/sessions/"+url.PathEscape(sessionID), nil)
	if err != nil {
		fatal("Failed to get session: %v", err)
	}

	status, _ := resp["status"].(string)
	if quiet {
		fmt.Println(status)
		return
	}

	printSuccess("Session state")
	fmt.Printf("  Status: %s%s%s\n", colorCyan, status, colorReset)
	if productID, ok := resp["product_id"].(float64); ok {
		fmt.Printf("  Product: %d\n", int64(productID))
	}
	if price, ok := resp["price"].(string); ok && price != "" {
		fmt.Printf("  Price: %s%s%s\n", colorGreen, price, colorReset)
	}
	if selection, ok := resp["selection"].(map[string]interface{}); ok && len(selection) > 0 {
		fmt.Printf("  %sSelection:%s\n", colorYellow, colorReset)
		for option, value := range selection {
			fmt.Printf("    %s = %v\n", option, value)
		}
	}
}

// =============================================================================
// HTTP HELPERS
// =============================================================================

func doRequest(method, path string, body interface{}) (map[string]interface{}, error) {
	var reqBody io.Reader
	var reqJSON []byte

	if body != nil {
		var err error
		reqJSON, err = json.MarshalIndent(body, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("marshaling request: %w", err)
		}
		reqBody = bytes.NewReader(reqJSON)
	}

	reqURL := serviceURL + path
	req, err := http.NewRequest(method, reqURL, reqBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if embedHeader != "" {
		req.Header.Set("Quickshop-Embed", embedHeader)
	}

	if !quiet {
		printRequest(method, path, reqJSON)
	}

	start := time.Now()
	resp, err := client.Do(req)
	duration := time.Since(start)

	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if !quiet {
		printResponse(resp.StatusCode, respBody, duration)
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
	}

	if len(respBody) == 0 {
		return map[string]interface{}{}, nil
	}

	var result map[string]interface{}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("parsing response: %w", err)
	}

	return result, nil
}

// responseMessage extracts the pipeline message from an add-to-cart
// response.
func responseMessage(resp map[string]interface{}) (msgType, content string) {
	msg, ok := resp["message"].(map[string]interface{})
	if !ok {
		return "", ""
	}
	msgType, _ = msg["type"].(string)
	content, _ = msg["content"].(string)
	return msgType, content
}

// =============================================================================
// OUTPUT HELPERS
// =============================================================================

func printRequest(method, path string, body []byte) {
	fmt.Printf("\n%s▶ REQUEST%s %s%s %s%s\n", colorYellow, colorReset, colorBold, method, path, colorReset)
	if body != nil {
		printJSON(body, "  ")
	}
}

func printResponse(status int, body []byte, duration time.Duration) {
	statusColor := colorGreen
	if status >= 400 {
		statusColor = colorRed
	}
	fmt.Printf("\n%s◀ RESPONSE%s %s%d%s (%v)\n", colorCyan, colorReset, statusColor, status, colorReset, duration)
	printJSON(body, "  ")
}

func printJSON(data []byte, prefix string) {
	if len(data) == 0 {
		return
	}
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, data, prefix, "  "); err != nil {
		fmt.Printf("%s%s\n", prefix, string(data))
		return
	}

	output := pretty.String()
	if !verbose {
		lines := strings.Split(output, "\n")
		if len(lines) > 30 {
			lines = append(lines[:25], fmt.Sprintf("%s  %s(%d more lines, use -v for full output)%s", prefix, colorGray, len(lines)-25, colorReset))
			output = strings.Join(lines, "\n")
		}
	}
	fmt.Println(output)
}

// printOps renders the view operations of a response the way an embed
// would apply them.
func printOps(resp map[string]interface{}) {
	ops, ok := resp["ops"].([]interface{})
	if !ok || len(ops) == 0 {
		return
	}

	fmt.Printf("  %sView ops:%s\n", colorYellow, colorReset)
	for _, raw := range ops {
		op, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		switch op["type"] {
		case "open_popup":
			content, _ := op["content"].(map[string]interface{})
			fmt.Printf("    open_popup      %s%v%s  %v\n",
				colorBold, content["title"], colorReset, content["price"])
		case "close_popup":
			fmt.Printf("    close_popup\n")
		case "render_group":
			group, _ := op["group"].(map[string]interface{})
			values, _ := group["values"].([]interface{})
			parts := make([]string, 0, len(values))
			for _, v := range values {
				s := fmt.Sprintf("%v", v)
				if s == group["active"] {
					s = colorGreen + "[" + s + "]" + colorReset
				}
				parts = append(parts, s)
			}
			fmt.Printf("    render_group    %v (%v): %s\n",
				group["option"], group["kind"], strings.Join(parts, " "))
		case "set_active_value":
			fmt.Printf("    set_active      %v = %s%v%s\n",
				op["option"], colorGreen, op["value"], colorReset)
		case "move_indicator":
			index := int(asFloat(op["index"]))
			count := int(asFloat(op["count"]))
			width, offset := render.Indicator(index, count)
			fmt.Printf("    move_indicator  %v -> slot %d/%d (width %.1f%%, offset %.0f%%)\n",
				op["option"], index+1, count, width, offset)
		case "set_price":
			fmt.Printf("    set_price       %s%v%s\n", colorGreen, op["text"], colorReset)
		case "set_submit_enabled":
			state := colorGreen + "enabled" + colorReset
			if enabled, _ := op["enabled"].(bool); !enabled {
				state = colorGray + "disabled" + colorReset
			}
			fmt.Printf("    submit          %s\n", state)
		case "show_message":
			msg, _ := op["message"].(map[string]interface{})
			c := colorBlue
			if msg["type"] == "error" {
				c = colorRed
			}
			fmt.Printf("    show_message    %s%v%s\n", c, msg["content"], colorReset)
		default:
			fmt.Printf("    %v\n", op["type"])
		}
	}
}

func asFloat(v interface{}) float64 {
	f, _ := v.(float64)
	return f
}

func printSuccess(format string, args ...interface{}) {
	if !quiet {
		fmt.Printf("%s✓ %s%s\n", colorGreen, fmt.Sprintf(format, args...), colorReset)
	}
}

func printError(format string, args ...interface{}) {
	fmt.Printf("%s✗ %s%s\n", colorRed, fmt.Sprintf(format, args...), colorReset)
}

func printWarning(format string, args ...interface{}) {
	fmt.Printf("%s⚠ %s%s\n", colorYellow, fmt.Sprintf(format, args...), colorReset)
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "%s✗ %s%s\n", colorRed, fmt.Sprintf(format, args...), colorReset)
	os.Exit(1)
}
