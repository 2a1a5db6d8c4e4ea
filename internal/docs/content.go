package docs

var topics = []Topic{
	{
		Name:    "quickstart",
		Title:   "Quick Start",
		Summary: "From empty directory to a running WebUI",
		Content: topicQuickstart,
	},
	{
		Name:    "workspace",
		Title:   "Workspace Layout",
		Summary: "Directory tree, config file, and state files",
		Content: topicWorkspace,
	},
	{
		Name:    "models",
		Title:   "Models and the Catalog",
		Summary: "Curated entries, flavors, and config selections",
		Content: topicModels,
	},
	{
		Name:    "cart",
		Title:   "Cart Files",
		Summary: "cart.txt format: markers, custom names, allowed hosts",
		Content: topicCart,
	},
	{
		Name:    "downloads",
		Title:   "Downloads",
		Summary: "Engines, resume, the manifest, and verification",
		Content: topicDownloads,
	},
	{
		Name:    "webuis",
		Title:   "WebUI Frontends",
		Summary: "Installing, updating, and how model linking works",
		Content: topicWebUIs,
	},
	{
		Name:    "hardware",
		Title:   "Hardware Profiles",
		Summary: "GPU detection, VRAM tiers, and platform detection",
		Content: topicHardware,
	},
	{
		Name:    "troubleshooting",
		Title:   "Troubleshooting",
		Summary: "Common failures and how to get unstuck",
		Content: topicTroubleshooting,
	},
}

const topicQuickstart = `Quick Start
===========

1. Create a workspace:

    mkdir sd && cd sd
    sdrig init

   This lays out the directory tree and writes .sdrig/config.yaml with
   the Forge WebUI selected and an SD 1.5 model set.

2. Pick models. Either run the interactive setup:

    sdrig ui

   or edit .sdrig/config.yaml / cart.txt by hand (see 'sdrig docs models'
   and 'sdrig docs cart').

3. Preview what would be fetched, then download:

    sdrig plan
    sdrig download

4. Install and start a WebUI:

    sdrig install forge
    sdrig launch

   The first launch installs the UI's own Python environment; expect it
   to take several minutes. sdrig prints the local (and, on cloud
   platforms, public) URL as soon as the UI announces it.

5. Keep an eye on things:

    sdrig status
    sdrig stop

CLI Overview
------------

    sdrig init                  Create a workspace in the current directory
    sdrig ui                    Interactive setup wizard
    sdrig ui --dashboard        Live workspace dashboard
    sdrig plan                  Show the download plan without fetching
    sdrig download              Fetch selected and carted models
    sdrig verify                Re-hash downloads against the manifest
    sdrig install <webui>       Clone a frontend
    sdrig update <webui>        Pull the latest frontend revision
    sdrig launch [webui]        Start a frontend (--detach to background)
    sdrig stop                  Stop the running frontend
    sdrig status                Workspace summary
    sdrig hardware              Detected GPU, RAM, platform, profile
    sdrig catalog [category]    Browse curated models
    sdrig config get|set|show   Read or edit configuration
    sdrig doctor                Health checks (--fix repairs safe ones)
    sdrig docs [topic]          This documentation

Global flags: --root DIR runs against a workspace elsewhere, --verbose
turns on debug logging to stderr.`

const topicWorkspace = `Workspace Layout
================

A workspace is any directory initialized with 'sdrig init':

    .sdrig/
      config.yaml          settings (see below)
      state.json           last/current launch record
      manifest.json        ledger of completed downloads
      logs/                session and launch logs
      tmp/                 partial downloads (.part files)
    models/
      Stable-diffusion/  VAE/  Lora/  ControlNet/  embeddings/  ESRGAN/
    webuis/                one subdirectory per installed frontend
    outputs/               generated images (linked into UIs that allow it)
    cart.txt               optional extra model URLs

Commands look for the workspace in the current directory, then walk up
toward the filesystem root, so 'sdrig status' works from any
subdirectory. Use --root to point somewhere else:

    sdrig --root ~/sd status

config.yaml
-----------

    webui:
      selected: forge        # forge | a1111 | comfyui | fooocus
      launch_args: ""        # extra flags appended to every launch
      share: auto            # auto | always | never
      port: 0                # 0 means the frontend's default
    models:
      sdxl: false            # catalog flavor
      checkpoints: [...]     # catalog names per category
      vaes: [...]
      loras: [...]
      controlnets: [...]
      embeddings: [...]
      upscalers: [...]
    download:
      workers: 3
      retries: 3
      timeout: 5m            # per attempt
      engine: auto           # auto | aria2 | native
    verbosity: pretty        # pretty | raw (no colors) | debug

Edit it directly or through 'sdrig config set':

    sdrig config set webui.selected comfyui
    sdrig config set download.workers 5

config.yaml, state.json, and manifest.json are written atomically
(temp file + rename), so a crash never leaves them half-written.`

const topicModels = `Models and the Catalog
======================

sdrig ships a curated catalog of known-good models per category:
checkpoint, vae, lora, controlnet, embedding, upscaler. Browse it:

    sdrig catalog                  all categories
    sdrig catalog lora             one category
    sdrig catalog --sdxl           the SDXL flavor
    sdrig catalog --json           machine-readable

Flavors
-------

The catalog comes in two flavors, sd15 and sdxl, toggled by
models.sdxl in config.yaml (or --sdxl on init/plan). SDXL models are
larger and need more VRAM; mixing flavors in one workspace works but
the UIs will only load what fits the loaded checkpoint.

Selections
----------

Name catalog entries in config.yaml to include them in every plan:

    models:
      checkpoints:
        - Deliberate
      vaes:
        - VAE ft-mse-840000

Names match case-insensitively, and a unique prefix is enough.
'sdrig plan' fails with the offending name when a selection does not
resolve; run 'sdrig catalog' to see what is available.

Shared Model Directory
----------------------

Models download once into models/ and are symlinked into each
installed frontend's expected layout at install time. Re-linking is
idempotent; a frontend directory that already has real files in place
is left alone (see 'sdrig docs webuis').`

const topicCart = `Cart Files
==========

cart.txt adds models that are not in the catalog. One URL per line,
grouped under category markers:

    #model
    https://civitai.com/api/download/models/128713
    https://huggingface.co/org/repo/resolve/main/thing.safetensors

    #lora
    https://civitai.com/api/download/models/87153 [detail tweaker]

    #vae
    https://huggingface.co/stabilityai/sd-vae-ft-mse-original/resolve/main/vae-ft-mse-840000-ema-pruned.safetensors

Markers
-------

    #model  or $ckpt          checkpoints
    #vae    or $vae           VAEs
    #lora   or $lora          LoRAs
    #controlnet, $cnet        ControlNet models
    #embedding, $emb          embeddings
    #upscale or $ups          upscalers

Markers are case-insensitive. Lines before the first marker are
skipped with a warning. '//' starts a comment line; blank lines are
ignored.

Item Lines
----------

An item is a URL, optionally followed by a custom name in brackets:

    https://example.host/file.safetensors [my name]

The bracket form renames the downloaded file (the extension is kept,
or .safetensors is added). Without it, the filename is derived from
the URL; civitai /api/download/models/<id> links start as
civitai-<id>.safetensors and pick up the server's real filename from
the content-disposition header during download.

Allowed hosts: civitai.com, huggingface.co, github.com,
drive.google.com, mega.nz (including subdomains). Anything else is
skipped with a warning rather than failing the whole cart. Duplicate
URLs keep the first occurrence.

Use a different cart file with 'sdrig download --cart FILE'.`

const topicDownloads = `Downloads
=========

'sdrig download' assembles a plan from config selections plus the
cart, skips what is already on disk, and fetches the rest with a
worker pool ('download.workers', default 3).

Engines
-------

    auto     use aria2c when on PATH, else the built-in client
    aria2    require aria2c (fails fast when missing)
    native   always use the built-in HTTP client

aria2c downloads with 4 connections per file and is noticeably faster
on large checkpoints. The native engine supports HTTP range resume:
interrupted transfers leave a .part file under .sdrig/tmp/ and
continue where they stopped on the next run. mega.nz links only work
through aria2.

Some hosts gate files behind a login (civitai early-access is the
usual case). sdrig sends no credentials; download such files in a
browser and drop them into the right models/ subdirectory instead.

Retries and timeouts are per attempt ('download.retries',
'download.timeout'); between attempts the delay doubles from 1s up
to 30s.

The Manifest
------------

Every completed download is recorded in .sdrig/manifest.json with its
URL, size, and BLAKE3 digest. The manifest is how 'sdrig download'
skips completed work, including files the server renamed via
content-disposition.

    sdrig verify           re-hash everything, report ok/changed/missing
    sdrig verify --prune   also drop missing files from the manifest

'changed' means the bytes on disk no longer match the recorded digest;
delete the file and re-run 'sdrig download' to restore it.`

const topicWebUIs = `WebUI Frontends
===============

Four frontends are built in:

    forge      lllyasviel/stable-diffusion-webui-forge   port 7860
    a1111      AUTOMATIC1111/stable-diffusion-webui      port 7860
    comfyui    comfyanonymous/ComfyUI                    port 8188
    fooocus    lllyasviel/Fooocus                        port 7865

    sdrig install forge        shallow git clone into webuis/forge
    sdrig update forge         git pull --ff-only
    sdrig install forge --force    wipe and re-clone

Installing also links the shared models/ tree into the frontend's own
expected layout (models/Stable-diffusion for the a1111 family,
models/checkpoints for ComfyUI, and so on), so every frontend sees
the same files without copies. Links are relative and idempotent; a
directory that already contains real files is kept, not replaced.

First Launch
------------

Each frontend bootstraps its own Python virtual environment and
installs torch on first start. That can take ten minutes and a few
GiB; it happens inside webuis/<name>/ and only once. sdrig uses
<name>/venv/bin/python when it exists and python3 from PATH otherwise.

Launching
---------

    sdrig launch               the selected frontend, foreground
    sdrig launch comfyui       a specific one
    sdrig launch --detach      background; sdrig exits once the URL shows
    sdrig launch --port 8080   override the port
    sdrig stop                 TERM the process group, KILL after 10s

Flags layer in this order, later wins: frontend defaults, hardware
profile flags ('sdrig docs hardware'), --share when enabled,
webui.launch_args from config, --port. On Colab/Kaggle-style
platforms share mode 'auto' turns the public URL on.`

const topicHardware = `Hardware Profiles
=================

'sdrig hardware' shows what detection found; launches use the same
probe to pick safe flags.

Detection
---------

GPU name and VRAM come from nvidia-smi. No nvidia-smi (or no GPU)
selects the CPU profile. RAM comes from /proc/meminfo; the platform is
recognized from environment markers:

    Google Colab, Kaggle, Paperspace, Lightning AI, otherwise local

Tiers
-----

    cpu      no usable GPU         batch 1
    low      VRAM <= 4 GiB         batch 1
    medium   VRAM <= 8 GiB         batch 2
    high     VRAM  > 8 GiB         batch 4

A GPU whose VRAM cannot be read is treated as medium.

Per-frontend flags by tier (a1111 family / ComfyUI / Fooocus):

    cpu      --use-cpu all --no-half --skip-torch-cuda-test
             --cpu / --always-cpu
    low      --medvram --lowvram / --lowvram / --always-low-vram
    medium   --medvram / --normalvram / (none)
    high     --xformers / --highvram / --always-high-vram

webui.launch_args come after profile flags, so config always wins an
argument conflict. The frontends parse flags with argparse, where the
last occurrence takes effect.`

const topicTroubleshooting = `Troubleshooting
===============

Run the doctor first; it checks the workspace, tools, disk, GPU, and
state in one pass and can repair the safe problems:

    sdrig doctor
    sdrig doctor --fix

"a webui is already running"
----------------------------

state.json records a live process. 'sdrig stop' ends it cleanly; if
the machine rebooted and the record is stale, 'sdrig stop' (or
'sdrig doctor --fix') clears it. '--force' launches anyway.

"<name> exited during startup"
------------------------------

A detached launch died before announcing its URL. The error includes
the last log line; the full log lives under .sdrig/logs/. The usual
causes on first launch are a failed pip install (network) or an
out-of-memory kill (try a smaller model or the low-VRAM profile).

"git not found on PATH" / "python3 not found on PATH"
-----------------------------------------------------

Install git and Python 3.10+. On Debian/Ubuntu:

    apt install git python3 python3-venv aria2

"aria2c is not on PATH"
-----------------------

Only fatal when config forces 'engine: aria2'; 'auto' falls back to
the built-in client. Install aria2 for faster checkpoint downloads.

"host ... is not allowlisted"
-----------------------------

Cart lines must point at a known model host ('sdrig docs cart' lists
them). For anything else, download manually into models/.

Downloads stall or die mid-file
-------------------------------

Re-run 'sdrig download'. Both engines resume; the native engine keeps
.part files under .sdrig/tmp/. 'changed' results from 'sdrig verify'
mean a file was truncated or edited after download; delete it and
fetch again.

Port already in use
-------------------

Another process owns the frontend's default port. Launch with
'sdrig launch --port 7861' or set webui.port in config.`
