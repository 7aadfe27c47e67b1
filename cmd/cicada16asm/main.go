// Command cicada16asm assembles Cicada-16 source into a ROM image and
// extracts 4bpp tile data from PNG art.
package main

import (
	"fmt"
	"image"
	_ "image/png"
	"log"
	"os"
	"path/filepath"
	"strconv"

	"github.com/urfave/cli/v2"

	"cicada16asm/asm"
	"cicada16asm/tilecodec"
)

func main() {
	app := &cli.App{
		Name:  "cicada16asm",
		Usage: "assemble Cicada-16 source and pack tile art",
		Commands: []*cli.Command{
			assembleCommand(),
			tileCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func assembleCommand() *cli.Command {
	return &cli.Command{
		Name:      "assemble",
		Aliases:   []string{"asm"},
		Usage:     "assemble a source file into a ROM image",
		ArgsUsage: "<source.asm>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "input", Aliases: []string{"i"}, Usage: "source file to assemble; may be given as the positional argument instead"},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "output ROM path", Value: "out.rom"},
			&cli.StringFlag{Name: "start-addr", Usage: "starting logical address, hex or decimal", Value: "0"},
			&cli.StringFlag{Name: "final-addr", Usage: "upper bound an .org may not exceed, 0 means unbounded", Value: "0"},
			&cli.StringFlag{Name: "header-addr", Usage: "physical address a .header directive is required to land at; unset means no .header is allowed"},
			&cli.StringFlag{Name: "irq-addr", Usage: "physical address a .interrupt directive is required to land at; unset means no .interrupt is allowed"},
			&cli.BoolFlag{Name: "list", Usage: "print a source-order listing of every label/instruction/directive to stdout"},
		},
		Action: func(c *cli.Context) error {
			srcPath := c.String("input")
			if srcPath == "" {
				if c.Args().Len() != 1 {
					return cli.Exit("assemble requires exactly one source path", 1)
				}
				srcPath = c.Args().First()
			}

			startAddr, err := parseAddr(c.String("start-addr"))
			if err != nil {
				return cli.Exit(fmt.Sprintf("bad --start-addr: %s", err), 1)
			}
			finalAddr, err := parseAddr(c.String("final-addr"))
			if err != nil {
				return cli.Exit(fmt.Sprintf("bad --final-addr: %s", err), 1)
			}

			opts := asm.AssembleOptions{
				Reader:           asm.NewFSReader(),
				Path:             srcPath,
				StartAddr:        startAddr,
				FinalLogicalAddr: finalAddr,
			}
			if c.IsSet("header-addr") {
				addr, err := parsePhysicalAddr(c.String("header-addr"))
				if err != nil {
					return cli.Exit(fmt.Sprintf("bad --header-addr: %s", err), 1)
				}
				opts.ExpectedHeaderAddr = addr
				opts.HasExpectedHeaderAddr = true
			}
			if c.IsSet("irq-addr") {
				addr, err := parsePhysicalAddr(c.String("irq-addr"))
				if err != nil {
					return cli.Exit(fmt.Sprintf("bad --irq-addr: %s", err), 1)
				}
				opts.ExpectedInterruptAddr = addr
				opts.HasExpectedInterruptAddr = true
			}

			src, err := os.ReadFile(srcPath)
			if err != nil {
				return cli.Exit(fmt.Sprintf("reading %s: %s", srcPath, err), 1)
			}

			result, err := asm.Assemble(src, opts)
			if err != nil {
				return cli.Exit(formatAssemblyError(srcPath, err), 1)
			}

			if c.Bool("list") {
				printListing(result.Program)
			}

			outPath := c.String("output")
			if err := os.WriteFile(outPath, result.ROM, 0o644); err != nil {
				return cli.Exit(fmt.Sprintf("writing %s: %s", outPath, err), 1)
			}

			fmt.Printf("%s: %d bytes\n", outPath, len(result.ROM))
			return nil
		},
	}
}

func tileCommand() *cli.Command {
	return &cli.Command{
		Name:      "tile",
		Usage:     "extract 4bpp planar tile data from a sub-rectangle of a PNG",
		ArgsUsage: "<image.png>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "output tile data path", Value: "out.tiles"},
			&cli.IntFlag{Name: "x", Usage: "sub-rectangle origin x, must be a multiple of 8"},
			&cli.IntFlag{Name: "y", Usage: "sub-rectangle origin y, must be a multiple of 8"},
			&cli.IntFlag{Name: "width", Usage: "sub-rectangle width, 0 means the full image width"},
			&cli.IntFlag{Name: "height", Usage: "sub-rectangle height, 0 means the full image height"},
		},
		Action: func(c *cli.Context) error {
			if c.Args().Len() != 1 {
				return cli.Exit("tile requires exactly one image path", 1)
			}
			imgPath := c.Args().First()

			f, err := os.Open(imgPath)
			if err != nil {
				return cli.Exit(fmt.Sprintf("opening %s: %s", imgPath, err), 1)
			}
			defer f.Close()

			img, _, err := image.Decode(f)
			if err != nil {
				return cli.Exit(fmt.Sprintf("decoding %s: %s", imgPath, err), 1)
			}

			rect := tilecodec.Rect{
				X: c.Int("x"),
				Y: c.Int("y"),
				W: c.Int("width"),
				H: c.Int("height"),
			}
			bounds := img.Bounds()
			if rect.W == 0 {
				rect.W = bounds.Dx()
			}
			if rect.H == 0 {
				rect.H = bounds.Dy()
			}

			data, err := tilecodec.EncodeTiles(img, rect)
			if err != nil {
				return cli.Exit(fmt.Sprintf("%s: %s", filepath.Base(imgPath), err), 1)
			}

			outPath := c.String("output")
			if err := os.WriteFile(outPath, data, 0o644); err != nil {
				return cli.Exit(fmt.Sprintf("writing %s: %s", outPath, err), 1)
			}

			fmt.Printf("%s: %d bytes (%d tiles)\n", outPath, len(data), len(data)/tilecodec.BytesPerTile)
			return nil
		},
	}
}

func parseAddr(s string) (uint16, error) {
	v, err := strconv.ParseInt(s, 0, 32)
	if err != nil {
		return 0, err
	}
	if v < 0 || v > 0xFFFF {
		return 0, fmt.Errorf("address %d out of 16-bit range", v)
	}
	return uint16(v), nil
}

// parsePhysicalAddr parses a physical ROM address, which may run past the
// 16-bit logical-address range once a cartridge has more than four banks.
func parsePhysicalAddr(s string) (uint32, error) {
	v, err := strconv.ParseInt(s, 0, 64)
	if err != nil {
		return 0, err
	}
	if v < 0 || v > 0xFFFFFFFF {
		return 0, fmt.Errorf("address %d out of range", v)
	}
	return uint32(v), nil
}

// printListing prints one line per source line in the style of bbcdisasm's
// "disasm" subcommand: a label column, then whichever of instruction or
// directive that line carries, using their String() renderings.
func printListing(prog *asm.Program) {
	for _, line := range prog.Lines {
		label := ""
		if line.HasLabel {
			label = line.Label + ":"
		}
		switch {
		case line.Instruction != nil:
			fmt.Printf("%4d  %-16s %s\n", line.Line, label, line.Instruction)
		case line.Directive != nil:
			fmt.Printf("%4d  %-16s %s\n", line.Line, label, line.Directive)
		case label != "":
			fmt.Printf("%4d  %s\n", line.Line, label)
		}
	}
}

func formatAssemblyError(path string, err error) string {
	aerr, ok := err.(*asm.AssemblyError)
	if !ok {
		return fmt.Sprintf("%s: %s", path, err)
	}
	if aerr.Line > 0 {
		return fmt.Sprintf("%s:%d: %s: %s", path, aerr.Line, aerr.Kind, aerr.Message)
	}
	return fmt.Sprintf("%s: %s: %s", path, aerr.Kind, aerr.Message)
}
