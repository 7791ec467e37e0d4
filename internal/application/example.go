package application

// ExampleConfig is an annotated rc file printed by --file-format.
const ExampleConfig = `[hubble]
# Variables that are defined for all sections
OS_AUTH_URL=https://identity.api.rackspacecloud.com
CINDER_VOLUME_SERVICE_NAME=cloudBlockStorage
OS_SERVICE_NAME=cloudserversOpenStack
OS_VERSION=2.0
OS_NO_CACHE=1

# Specify the command to run for all
# sections, unless redefined in a section
cmd=nova

# The output from this command gets sourced
# into the environment
env-cmd=echo 'SOME_SCRIPT_DEFINED_VAR=1'

# Same as the 'env-cmd' but only when the
# -o option is used
opt-cmd=rax-auth ${OS_AUTH_URL} ${opt.options}

# Commands run when hubble is invoked through a
# symlink, keyed by the name of the link
[hubble-commands]
cinder=/usr/local/bin/cinder

[us-cinder]
OS_USERNAME=username
# Stored with 'hubble-keyring --set us-cinder OS_PASSWORD'
OS_PASSWORD=USE_KEYRING
OS_TENANT_NAME=000001
# Run 'cinder' for both 'dfw' and 'ord'
meta=['dfw', 'ord']
# The command to run for this section
cmd=cinder

[lon-cinder]
OS_AUTH_URL=https://lon.identity.api.rackspacecloud.com
OS_USERNAME=username
# Stored with 'hubble-keyring --set lon-password'
OS_PASSWORD=USE_KEYRING['lon-password']
OS_TENANT_NAME=000001
OS_REGION_NAME=LON
cmd=cinder

[dfw]
OS_REGION_NAME=DFW

[ord]
OS_REGION_NAME=ORD

[rackspace]
OS_AUTH_SYSTEM=rackspace
OS_USERNAME=username
OS_TENANT_NAME=000001

# Sections may inherit from one or more other sections
[dfw-nova]
%inherit=rackspace
OS_REGION_NAME=DFW
cmd=nova
`
